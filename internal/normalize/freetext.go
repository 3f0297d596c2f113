package normalize

import (
	"regexp"
	"strings"

	"fapiao/internal/domain"
)

// Line-oriented label patterns for the free-text fallback. Bilingual labels,
// ASCII or full-width colon.
var (
	amountLineRe = labelPattern("amount", "total", "金额", "总金额", "报销金额")
	taxIDLineRe  = labelPattern("tax ?id", "tax number", "税号")
	dateLineRe   = labelPattern("date", "invoice date", "日期", "开票日期")
	sellerLineRe = labelPattern("seller", "销售方")
	buyerLineRe  = labelPattern("buyer", "购买方")
	typeLineRe   = labelPattern("invoice type", "type", "发票类型")

	// itemLineRe matches "name price quantity" rows, e.g. "办公用品 35.00 2".
	itemLineRe = regexp.MustCompile(`^\s*(\S{2,})\s+(\d[\d,.]*)\s+(\d+(?:\.\d+)?)\s*$`)
)

func labelPattern(labels ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^\s*(?:` + strings.Join(labels, "|") + `)\s*[:：]\s*(.+?)\s*$`)
}

// FromText is the best-effort fallback used when JSON recovery yields no
// structured value: it scans raw model text line by line for labeled fields
// and item rows. Heuristics are approximate; absent matches leave the same
// defaults structured mapping would.
func FromText(text string) domain.InvoiceRecord {
	rec := domain.InvoiceRecord{Items: []domain.LineItem{}}

	for _, line := range strings.Split(text, "\n") {
		switch {
		case matchLabel(amountLineRe, line, func(v string) { rec.Amount = CoerceNumber(v) }):
		case matchLabel(taxIDLineRe, line, func(v string) { rec.TaxID = v }):
		case matchLabel(dateLineRe, line, func(v string) { rec.Date = v }):
		case matchLabel(sellerLineRe, line, func(v string) { rec.Seller = v }):
		case matchLabel(buyerLineRe, line, func(v string) { rec.Buyer = v }):
		case matchLabel(typeLineRe, line, func(v string) { rec.InvoiceType = v }):
		default:
			if m := itemLineRe.FindStringSubmatch(line); m != nil {
				rec.Items = append(rec.Items, domain.LineItem{
					Name:     m[1],
					Price:    CoerceNumber(m[2]),
					Quantity: CoerceNumber(m[3]),
				})
			}
		}
	}
	return rec
}

// matchLabel applies set on the captured value if re matches line.
func matchLabel(re *regexp.Regexp, line string, set func(string)) bool {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	set(m[1])
	return true
}
