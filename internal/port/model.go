package port

import (
	"context"

	"fapiao/internal/qwen"
)

// ModelClient abstracts one call to the hosted multimodal model.
type ModelClient interface {
	// Invoke sends a single user message and returns the raw response
	// envelope. token overrides any configured credential when non-empty.
	Invoke(ctx context.Context, token string, contents []qwen.Content) ([]byte, error)
}

// TemplateReader extracts the ordered header row from a spreadsheet
// template file.
type TemplateReader interface {
	Headers(filename string, data []byte) ([]string, error)
}
