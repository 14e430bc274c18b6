package pii

import (
	"context"
	"maps"
	"regexp"
	"strings"

	"github.com/hashicorp/go-hclog"
)

var defaultTable = map[string]bool{
	"student_id":              false,
	"name":                    true,
	"email_address":           true,
	"phone_number":            true,
	"address":                 true,
	"amount":                  false,
	"course":                  false,
	"cohort":                  false,
	"graduation_date":         false,
	"birth_date":              true,
	"passport_number":         true,
	"credit_card_number":      true,
	"cvv":                     true,
	"salary":                  false,
	"tax_id":                  true,
	"national_insurance":      true,
	"ni_number":               true,
	"employee_id":             false,
	"department":              false,
	"join_date":               false,
	"last_login":              false,
	"user_email":              true,
	"address_line_1":          true,
	"address_line_2":          true,
	"city":                    false,
	"country":                 false,
	"postcode":                true,
	"billing_address":         true,
	"shipping_address":        true,
	"first_name":              true,
	"last_name":               true,
	"middle_name":             true,
	"gender":                  false,
	"marital_status":          false,
	"education_level":         false,
	"course_code":             false,
	"enrollment_number":       false,
	"bank_account_number":     true,
	"iban":                    true,
	"routing_number":          true,
	"device_id":               true,
	"imei_number":             true,
	"device_type":             false,
	"device_os":               false,
	"mac_address":             true,
	"ip_address":              true,
	"session_id":              true,
	"login_time":              false,
	"logout_time":             false,
	"user_agent":              true,
	"authentication_token":    true,
	"subscription_id":         false,
	"subscription_start_date": false,
	"subscription_end_date":   false,
	"order_id":                false,
	"product_id":              false,
	"quantity":                false,
	"total_amount":            false,
	"shipping_method":         false,
	"payment_method":          false,
	"order_status":            false,
	"customer_feedback":       false,
	"support_ticket":          false,
	"service_rating":          false,
	"product_review":          false,
	"payment_status":          false,
	"transaction_id":          false,
	"product_name":            false,
	"shipping_status":         false,
	"order_date":              false,
	"payment_date":            false,
	"customer_id":             false,
	"customer_name":           true,
}

var (
	piiTerms    = []string{"email", "phone", "contact", "name", "address", "dob", "birth", "passport"}
	nonPIITerms = []string{"course", "product", "item", "company", "department", "category"}

	piiPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bni\b`),
		regexp.MustCompile(`(?i)account.*number|number.*account`),
		regexp.MustCompile(`(?i)credit.*card|card.*credit`),
	}
)

// DefaultTable returns a copy of the built-in column name table.
func DefaultTable() map[string]bool {
	return maps.Clone(defaultTable)
}

// Heuristic classifies column names with a lookup table, falling back to
// PII terms (minus non-PII exclusions) and patterns. The table is copied
// on construction and never modified.
type Heuristic struct {
	table  map[string]bool
	logger hclog.Logger
}

// NewHeuristic builds a Heuristic over table. A nil table selects
// DefaultTable.
func NewHeuristic(table map[string]bool, logger hclog.Logger) *Heuristic {
	if table == nil {
		table = defaultTable
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Heuristic{table: maps.Clone(table), logger: logger}
}

// Name implements Classifier.
func (h *Heuristic) Name() string {
	return "heuristic"
}

// IsSensitive reports whether column looks like PII. Spaces are treated
// as underscores when consulting the table.
func (h *Heuristic) IsSensitive(column string) bool {
	sensitive, _ := h.judge(column)
	return sensitive
}

func (h *Heuristic) judge(column string) (bool, string) {
	key := strings.ReplaceAll(column, " ", "_")
	if v, ok := h.table[key]; ok {
		h.logger.Trace("column found in table", "column", column, "pii", v)
		return v, "listed in name table"
	}

	lower := strings.ToLower(key)
	if containsAny(lower, piiTerms) {
		if containsAny(lower, nonPIITerms) {
			return false, "non-PII term in name"
		}
		return true, "PII term in name"
	}

	for _, p := range piiPatterns {
		if p.MatchString(key) {
			h.logger.Trace("column matches pattern", "column", column, "pattern", p.String())
			return true, "matches pattern " + p.String()
		}
	}
	return false, "no PII indicator"
}

// Classify implements Classifier with scores of 1 or 0.
func (h *Heuristic) Classify(_ context.Context, columns []string) ([]Verdict, error) {
	verdicts := make([]Verdict, len(columns))
	for i, col := range columns {
		sensitive, reason := h.judge(col)
		score := 0.0
		if sensitive {
			score = 1.0
		}
		verdicts[i] = Verdict{ColumnName: col, Score: score, Reason: reason}
	}
	return verdicts, nil
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
