// Package pii decides which columns of a dataset hold personally
// identifiable information.
//
// Two classifiers are provided: Heuristic, a pure lookup over a name
// table with term and pattern fallbacks, and AIClassifier, which asks an
// Ollama-served model. A Detector combines them into a field list.
package pii

import (
	"context"
	"fmt"
)

// DefaultThreshold is the score a verdict must exceed to count as PII.
const DefaultThreshold = 0.6

// Verdict is one classifier's opinion about a column.
type Verdict struct {
	ColumnName string  `json:"column_name"`
	Score      float64 `json:"score"`
	Reason     string  `json:"reason"`
}

// Classifier scores column names.
type Classifier interface {
	// Name identifies the classifier in reports and logs
	Name() string

	// Classify returns one verdict per recognised column
	Classify(ctx context.Context, columns []string) ([]Verdict, error)
}

// ClassifierError reports a classifier that could not produce verdicts.
type ClassifierError struct {
	Classifier string
	Err        error
}

func (e *ClassifierError) Error() string {
	return fmt.Sprintf("%s classifier failed: %v", e.Classifier, e.Err)
}

func (e *ClassifierError) Unwrap() error {
	return e.Err
}
