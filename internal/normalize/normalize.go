// Package normalize maps the loosely-shaped objects recovered from model
// text onto the canonical invoice schema. Field names vary between replies
// (English and Chinese aliases); each canonical field tries a fixed alias
// priority list and the first present alias wins. Helpers here never panic
// and never return nil maps or NaN — missing values default to "" or 0 so
// downstream aggregation is total-safe.
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"fapiao/internal/domain"
)

// Alias priority lists, first present wins.
var (
	amountAliases   = []string{"amount", "total", "totalAmount", "金额", "总金额", "报销金额"}
	taxIDAliases    = []string{"taxId", "tax_number", "taxNumber", "tax", "税号"}
	dateAliases     = []string{"date", "invoiceDate", "invoice_date", "日期", "开票日期"}
	sellerAliases   = []string{"seller", "销售方"}
	buyerAliases    = []string{"buyer", "购买方"}
	typeAliases     = []string{"invoiceType", "invoice_type", "type", "发票类型"}
	itemsAliases    = []string{"items", "lineItems", "line_items", "商品明细", "项目明细", "明细"}
	itemNameAliases = []string{"name", "item", "名称", "项目名称"}
	categoryAliases = []string{"category", "cat", "分类", "类别"}
	priceAliases    = []string{"price", "unitPrice", "unit_price", "单价"}
	quantityAliases = []string{"quantity", "qty", "数量"}
)

// numberRe matches the first signed decimal number in a string.
var numberRe = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)

// numberNoise holds separators stripped before numeric extraction:
// ASCII and full-width commas plus regular and full-width spaces.
var numberNoise = strings.NewReplacer(",", "", "，", "", " ", "", "　", "")

// CoerceNumber converts an arbitrary recovered value to a float64. String
// values tolerate thousands separators and embedded currency noise such as
// "1,234.50元". Anything unparseable coerces to 0; this never panics.
func CoerceNumber(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		if n != n { // NaN
			return 0
		}
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		cleaned := numberNoise.Replace(n)
		match := numberRe.FindString(cleaned)
		if match == "" {
			return 0
		}
		f, err := strconv.ParseFloat(match, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Record maps one recovered object onto the canonical InvoiceRecord.
// Non-object input yields a zero-valued record.
func Record(raw interface{}) domain.InvoiceRecord {
	rec := domain.InvoiceRecord{Items: []domain.LineItem{}}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return rec
	}

	rec.Amount = CoerceNumber(first(obj, amountAliases))
	rec.TaxID = asString(first(obj, taxIDAliases))
	rec.Date = asString(first(obj, dateAliases))
	rec.Seller = asString(first(obj, sellerAliases))
	rec.Buyer = asString(first(obj, buyerAliases))
	rec.InvoiceType = asString(first(obj, typeAliases))

	if items, ok := first(obj, itemsAliases).([]interface{}); ok {
		for _, it := range items {
			rec.Items = append(rec.Items, lineItem(it))
		}
	}
	return rec
}

func lineItem(raw interface{}) domain.LineItem {
	var li domain.LineItem
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return li
	}
	li.Name = asString(first(obj, itemNameAliases))
	li.Category = asString(first(obj, categoryAliases))
	li.Price = CoerceNumber(first(obj, priceAliases))
	li.Quantity = CoerceNumber(first(obj, quantityAliases))
	return li
}

// Summary maps a recovered summary object onto SummaryRecord. Maps are
// always non-nil.
func Summary(raw interface{}) domain.SummaryRecord {
	sum := domain.SummaryRecord{
		ByCategory: map[string]domain.CategoryStat{},
		ByDate:     map[string]float64{},
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return sum
	}

	sum.TotalAmount = CoerceNumber(first(obj, amountAliases))

	if byCat, ok := obj["byCategory"].(map[string]interface{}); ok {
		for name, v := range byCat {
			stat := domain.CategoryStat{}
			if m, ok := v.(map[string]interface{}); ok {
				stat.Count = int(CoerceNumber(m["count"]))
				stat.Total = CoerceNumber(m["total"])
			} else {
				stat.Total = CoerceNumber(v)
			}
			sum.ByCategory[name] = stat
		}
	}
	if byDate, ok := obj["byDate"].(map[string]interface{}); ok {
		for date, v := range byDate {
			sum.ByDate[date] = CoerceNumber(v)
		}
	}
	return sum
}

// Summarize computes a SummaryRecord locally from normalized records.
// Category attribution uses each record's first line item, falling back
// to "其他" when none is present.
func Summarize(records []domain.InvoiceRecord) domain.SummaryRecord {
	sum := domain.SummaryRecord{
		ByCategory: map[string]domain.CategoryStat{},
		ByDate:     map[string]float64{},
	}
	for _, rec := range records {
		sum.TotalAmount += rec.Amount
		sum.ByDate[rec.Date] += rec.Amount

		category := "其他"
		if len(rec.Items) > 0 && rec.Items[0].Category != "" {
			category = rec.Items[0].Category
		}
		stat := sum.ByCategory[category]
		stat.Count++
		stat.Total += rec.Amount
		sum.ByCategory[category] = stat
	}
	return sum
}

// Classify discriminates one element of a model reply into the tagged
// BatchResult union: a summary wrapper, a csv wrapper, or an invoice
// record. Discrimination lives here, and only here, so downstream code
// never guesses by key presence. String elements (stray prose inside an
// otherwise structured reply) go through the free-text fallback; ok is
// false when the element carries nothing usable, so no phantom
// zero-valued record enters the sequence.
func Classify(element interface{}) (domain.BatchResult, bool) {
	switch el := element.(type) {
	case map[string]interface{}:
		if raw, ok := el["summary"]; ok {
			return domain.BatchResult{Kind: domain.BatchResultSummary, Summary: Summary(raw)}, true
		}
		if raw, ok := el["csv"]; ok {
			return domain.BatchResult{Kind: domain.BatchResultCSV, CSV: asString(raw)}, true
		}
		return domain.BatchResult{Kind: domain.BatchResultRecord, Record: Record(el)}, true
	case string:
		rec := FromText(el)
		if rec.IsZero() {
			return domain.BatchResult{}, false
		}
		return domain.BatchResult{Kind: domain.BatchResultRecord, Record: rec}, true
	default:
		return domain.BatchResult{}, false
	}
}

// ClassifyAll flattens a recovered value into an ordered BatchResult list,
// dropping unusable elements. A bare object is treated as a single-element
// reply.
func ClassifyAll(recovered interface{}) []domain.BatchResult {
	switch v := recovered.(type) {
	case []interface{}:
		results := make([]domain.BatchResult, 0, len(v))
		for _, el := range v {
			if br, ok := Classify(el); ok {
				results = append(results, br)
			}
		}
		return results
	default:
		if br, ok := Classify(v); ok {
			return []domain.BatchResult{br}
		}
		return nil
	}
}

func first(obj map[string]interface{}, aliases []string) interface{} {
	for _, key := range aliases {
		if v, ok := obj[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}
