package pii

import (
	"context"
	"errors"

	"github.com/hashicorp/go-hclog"
)

// Detection is the outcome of running a Detector over a column list.
type Detection struct {
	// Fields holds the base fields followed by every detected column
	// that was not already present
	Fields []string

	// Verdicts holds each classifier's verdicts, keyed by classifier name
	Verdicts map[string][]Verdict

	// Errors collects classifier failures; they never alter Fields
	// beyond dropping that classifier's contribution
	Errors []error
}

// Detector runs classifiers and merges their positive verdicts.
type Detector struct {
	classifiers []Classifier
	threshold   float64
	logger      hclog.Logger
}

// NewDetector creates a Detector. A threshold of zero or less selects
// DefaultThreshold.
func NewDetector(threshold float64, logger hclog.Logger, classifiers ...Classifier) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Detector{classifiers: classifiers, threshold: threshold, logger: logger}
}

// Detect classifies columns and returns base extended with every column
// scored above the threshold. Only names present in columns are added,
// so a model inventing column names cannot introduce missing fields.
func (d *Detector) Detect(ctx context.Context, columns []string, base []string) *Detection {
	result := &Detection{
		Fields:   append([]string(nil), base...),
		Verdicts: make(map[string][]Verdict),
	}

	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}
	selected := make(map[string]bool, len(base))
	for _, f := range base {
		selected[f] = true
	}

	for _, c := range d.classifiers {
		verdicts, err := c.Classify(ctx, columns)
		if err != nil {
			var ce *ClassifierError
			if !errors.As(err, &ce) {
				err = &ClassifierError{Classifier: c.Name(), Err: err}
			}
			d.logger.Warn("classifier failed, ignoring its verdicts", "classifier", c.Name(), "error", err)
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Verdicts[c.Name()] = verdicts

		for _, v := range verdicts {
			if v.Score <= d.threshold || !known[v.ColumnName] || selected[v.ColumnName] {
				continue
			}
			selected[v.ColumnName] = true
			result.Fields = append(result.Fields, v.ColumnName)
			d.logger.Debug("detected PII column", "classifier", c.Name(), "column", v.ColumnName, "score", v.Score)
		}
	}

	return result
}
