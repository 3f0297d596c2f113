// Package prompt composes the instruction strings sent to the model. Build
// is a pure function of its inputs so unit tests can assert against literal
// expected strings.
package prompt

import "strings"

// TaskKind selects the instruction block for one model call.
type TaskKind string

const (
	// TaskExtract asks for per-invoice field extraction from images.
	TaskExtract TaskKind = "extract"
	// TaskSummarize asks for a summary over previously extracted records.
	TaskSummarize TaskKind = "summarize"
	// TaskTabulate asks for a CSV table over previously extracted records.
	TaskTabulate TaskKind = "tabulate"
	// TaskSummarizeTabulate asks for both summary and CSV in one reply.
	TaskSummarizeTabulate TaskKind = "summarize+tabulate"
)

// Options carries the contextual data injected into a prompt.
type Options struct {
	// TemplateHeaders are spreadsheet template column names; when present
	// the generated CSV must use exactly these columns.
	TemplateHeaders []string
	// RecordsJSON is the accumulated record sequence from the extraction
	// stage, embedded into aggregation prompts.
	RecordsJSON string
}

const preamble = `你是一位高级财务专家，专精处理发票、Excel数据和财务报表。
【严格约束】：
1. 所有回答必须仅基于当前提供的输入数据
2. 关键财务数据必须完全匹配提供的数据，不得估算
3. 禁止添加任何解释、注释、Markdown或额外文本
4. 只输出要求的内容，前后不要加任何字符
5. 生成的表头必须完全基于提供的数据，不得凭空创建不存在的字段
`

const extractTask = `从每张发票中提取以下字段，以合法JSON格式输出：金额（number）、税号（string）、开票日期（YYYY-MM-DD）、销售方（string）、购买方（string）、发票类型（string）、商品明细（数组，含名称、分类、单价、数量）。
最终输出格式(严格遵守)：<JSON object[]>，数组中每个对象对应一张发票，顺序与图片顺序一致。
注意：商品明细中必须包括项目名称。仅输出要求内容，无额外文本。
`

const summarizeTask = `对提供的发票JSON数据进行汇总分析：统计总金额（totalAmount）、按分类汇总（byCategory，每类含count与total）、按开票日期汇总金额（byDate）。
最终输出格式(严格遵守)：[{ "summary": {...} }]
注意：仅输出要求内容，无额外文本。
`

const tabulateTask = `基于提供的发票JSON数据生成CSV表格。
最终输出格式(严格遵守)：[{ "csv": "..." }]
注意：仅输出要求内容，无额外文本。
`

const summarizeTabulateTask = `任务分两步，必须按顺序完成：
1. 对提供的发票JSON数据进行汇总分析：统计总金额（totalAmount）、按分类汇总（byCategory，每类含count与total）、按开票日期汇总金额（byDate）。
2. 基于第1步汇总结果生成CSV表格。
最终输出格式(严格遵守)：[{ "summary": {...} }, { "csv": "..." }]
注意：两步必须都完成，仅输出要求内容，无额外文本。
`

// Build returns the deterministic prompt for one model call.
func Build(kind TaskKind, opts Options) string {
	var b strings.Builder
	b.WriteString(preamble)

	if len(opts.TemplateHeaders) > 0 {
		b.WriteString("Excel模版列定义(CSV)：")
		b.WriteString(strings.Join(opts.TemplateHeaders, ","))
		b.WriteString("\n生成CSV时必须使用且仅使用以上列。\n")
	}
	if opts.RecordsJSON != "" {
		b.WriteString("发票JSON数据：")
		b.WriteString(opts.RecordsJSON)
		b.WriteString("\n")
	}

	switch kind {
	case TaskExtract:
		b.WriteString(extractTask)
	case TaskSummarize:
		b.WriteString(summarizeTask)
	case TaskTabulate:
		b.WriteString(tabulateTask)
	case TaskSummarizeTabulate:
		b.WriteString(summarizeTabulateTask)
	}
	return b.String()
}
