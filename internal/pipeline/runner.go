// Package pipeline orchestrates the full extraction run: file conversion,
// batched model calls, JSON recovery, normalization, and the final
// aggregation call. Batches run sequentially to bound load on the upstream
// endpoint and keep progress reporting monotonic; a failed or timed-out
// call fails the whole run, since a half-merged result is worse than an
// explicit error for a financial-document tool.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fapiao/internal/csvexport"
	"fapiao/internal/domain"
	"fapiao/internal/normalize"
	"fapiao/internal/port"
	"fapiao/internal/preprocess"
	"fapiao/internal/prompt"
	"fapiao/internal/qwen"
	"fapiao/internal/recovery"
)

// Progress receives advisory percentage milestones. Values are monotonically
// non-decreasing; never used for control flow.
type Progress func(percent int, stage string)

// Request describes one pipeline run.
type Request struct {
	Token           string
	Files           []preprocess.InputFile
	TemplateHeaders []string
	WantSummary     bool
	WantCSV         bool
	Progress        Progress
}

// Runner executes pipeline runs against a model client.
type Runner struct {
	client      port.ModelClient
	encoder     *preprocess.Encoder
	batchSize   int
	callTimeout time.Duration
}

// NewRunner creates a Runner. batchSize bounds files per model call;
// callTimeout bounds each upstream call.
func NewRunner(client port.ModelClient, encoder *preprocess.Encoder, batchSize int, callTimeout time.Duration) *Runner {
	if batchSize <= 0 {
		batchSize = 8
	}
	if callTimeout <= 0 {
		callTimeout = 300 * time.Second
	}
	return &Runner{
		client:      client,
		encoder:     encoder,
		batchSize:   batchSize,
		callTimeout: callTimeout,
	}
}

// Progress milestones. Conversion ends at 20, batches fill 20..80,
// aggregation 80..95.
const (
	progressConvertEnd = 20
	progressBatchEnd   = 80
	progressAggregate  = 95
)

// Run executes the whole pipeline for one request. Record order follows
// input file order across batch boundaries. On any upstream failure or
// timeout no partial result is returned.
func (r *Runner) Run(ctx context.Context, req Request) (*domain.PipelineResult, error) {
	report := req.Progress
	if report == nil {
		report = func(int, string) {}
	}
	report(0, "start")

	encoded := make([]preprocess.EncodedFile, 0, len(req.Files))
	for i, f := range req.Files {
		out, err := r.encoder.Encode(f)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, out)
		report(progressConvertEnd*(i+1)/len(req.Files), "convert")
	}

	result := &domain.PipelineResult{
		Records: []domain.InvoiceRecord{},
		Summary: domain.SummaryRecord{
			ByCategory: map[string]domain.CategoryStat{},
			ByDate:     map[string]float64{},
		},
	}

	var csvFragments []string
	batches := chunk(encoded, r.batchSize)
	for i, batch := range batches {
		report(progressConvertEnd+(progressBatchEnd-progressConvertEnd)*i/len(batches), fmt.Sprintf("batch %d/%d", i+1, len(batches)))

		text, err := r.invoke(ctx, req.Token, batchContents(batch), i+1)
		if err != nil {
			return nil, err
		}

		recovered := recovery.Recover(text)
		if recovered == nil {
			// Soft miss: keep the raw text for diagnostics and fall back
			// to line-oriented field extraction. Only a record with at
			// least one matched field enters the sequence.
			result.RawTexts = append(result.RawTexts, text)
			if rec := normalize.FromText(text); !rec.IsZero() {
				result.Records = append(result.Records, rec)
			}
			continue
		}
		for _, br := range normalize.ClassifyAll(recovered) {
			switch br.Kind {
			case domain.BatchResultRecord:
				result.Records = append(result.Records, br.Record)
			case domain.BatchResultSummary:
				result.Summary = br.Summary
			case domain.BatchResultCSV:
				csvFragments = append(csvFragments, br.CSV)
			}
		}
		report(progressConvertEnd+(progressBatchEnd-progressConvertEnd)*(i+1)/len(batches), fmt.Sprintf("batch %d/%d", i+1, len(batches)))
	}

	if req.WantSummary || req.WantCSV {
		report(progressBatchEnd, "aggregate")
		summary, fragments, err := r.aggregate(ctx, req, result.Records)
		if err != nil {
			return nil, err
		}
		if summary != nil {
			result.Summary = *summary
		} else if req.WantSummary {
			// The model omitted the summary section; compute it locally so
			// the keys derive only from records actually present.
			result.Summary = normalize.Summarize(result.Records)
		}
		csvFragments = append(csvFragments, fragments...)
		report(progressAggregate, "aggregate")
	}

	result.CSV = csvexport.MergeFragments(csvFragments)
	report(100, "done")
	return result, nil
}

// aggregate issues the follow-up call that merges all batches' records into
// a summary and CSV. Batch number 0 identifies this call in timeouts.
func (r *Runner) aggregate(ctx context.Context, req Request, records []domain.InvoiceRecord) (*domain.SummaryRecord, []string, error) {
	recordsJSON, err := json.Marshal(records)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling records: %w", err)
	}

	kind := prompt.TaskTabulate
	if req.WantSummary {
		kind = prompt.TaskSummarizeTabulate
	}
	p := prompt.Build(kind, prompt.Options{
		TemplateHeaders: req.TemplateHeaders,
		RecordsJSON:     string(recordsJSON),
	})

	text, err := r.invoke(ctx, req.Token, []qwen.Content{{Text: p}}, 0)
	if err != nil {
		return nil, nil, err
	}

	recovered := recovery.Recover(text)
	if recovered == nil {
		return nil, nil, nil
	}

	var summary *domain.SummaryRecord
	var fragments []string
	for _, br := range normalize.ClassifyAll(recovered) {
		switch br.Kind {
		case domain.BatchResultSummary:
			if summary == nil {
				s := br.Summary
				summary = &s
			}
		case domain.BatchResultCSV:
			fragments = append(fragments, br.CSV)
		}
	}
	return summary, fragments, nil
}

// invoke performs one bounded model call and flattens the envelope to text.
// If the envelope carries no recognizable text, the raw body is used so
// recovery still gets a chance.
func (r *Runner) invoke(ctx context.Context, token string, contents []qwen.Content, batch int) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	body, err := r.client.Invoke(callCtx, token, contents)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &domain.TimeoutError{Batch: batch, Err: err}
		}
		if batch == 0 {
			return "", fmt.Errorf("aggregation call: %w", err)
		}
		return "", fmt.Errorf("batch %d: %w", batch, err)
	}

	texts := qwen.ExtractFromJSON(body)
	if len(texts) == 0 {
		return string(body), nil
	}
	return strings.Join(texts, "\n"), nil
}

// batchContents builds the ordered content blocks for one extraction call:
// the batch's images followed by the extract prompt.
func batchContents(batch []preprocess.EncodedFile) []qwen.Content {
	contents := make([]qwen.Content, 0, len(batch)+1)
	for _, f := range batch {
		contents = append(contents, qwen.Content{Image: f.DataURL})
	}
	contents = append(contents, qwen.Content{Text: prompt.Build(prompt.TaskExtract, prompt.Options{})})
	return contents
}

func chunk(files []preprocess.EncodedFile, size int) [][]preprocess.EncodedFile {
	var batches [][]preprocess.EncodedFile
	for start := 0; start < len(files); start += size {
		end := start + size
		if end > len(files) {
			end = len(files)
		}
		batches = append(batches, files[start:end])
	}
	return batches
}
