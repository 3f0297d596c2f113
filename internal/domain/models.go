package domain

// LineItem is a single goods/service line on an invoice.
type LineItem struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// InvoiceRecord is the canonical normalized invoice (fapiao).
// Numeric fields are never NaN; unparseable values normalize to 0.
type InvoiceRecord struct {
	Amount      float64    `json:"amount"`
	TaxID       string     `json:"taxId"`
	Date        string     `json:"date"`
	Seller      string     `json:"seller"`
	Buyer       string     `json:"buyer"`
	InvoiceType string     `json:"invoiceType"`
	Items       []LineItem `json:"items"`
}

// IsZero reports whether no field of the record carries a value. Used to
// discard fallback extractions that matched nothing.
func (r InvoiceRecord) IsZero() bool {
	return r.Amount == 0 &&
		r.TaxID == "" &&
		r.Date == "" &&
		r.Seller == "" &&
		r.Buyer == "" &&
		r.InvoiceType == "" &&
		len(r.Items) == 0
}

// CategoryStat aggregates invoice count and total amount for one category.
type CategoryStat struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// SummaryRecord aggregates a set of InvoiceRecords.
type SummaryRecord struct {
	TotalAmount float64                 `json:"totalAmount"`
	ByCategory  map[string]CategoryStat `json:"byCategory"`
	ByDate      map[string]float64      `json:"byDate"`
}

// BatchResultKind discriminates the heterogeneous elements of a model reply.
type BatchResultKind string

const (
	BatchResultRecord  BatchResultKind = "record"
	BatchResultSummary BatchResultKind = "summary"
	BatchResultCSV     BatchResultKind = "csv"
)

// BatchResult is one tagged element of a single model reply. A reply is an
// ordered list of these, not a single typed value.
type BatchResult struct {
	Kind    BatchResultKind
	Record  InvoiceRecord
	Summary SummaryRecord
	CSV     string
}

// PipelineResult is the final output of one pipeline run.
type PipelineResult struct {
	Records []InvoiceRecord `json:"parsedFapiao"`
	Summary SummaryRecord   `json:"summary"`
	CSV     string          `json:"csv"`

	// RawTexts holds raw model text for batches whose reply yielded no
	// usable structured data. Diagnostic only.
	RawTexts []string `json:"-"`
}

// ExportJSON is the pretty-printed download shape for records plus summary.
type ExportJSON struct {
	Invoices []InvoiceRecord `json:"invoices"`
	Summary  SummaryRecord   `json:"summary"`
}
