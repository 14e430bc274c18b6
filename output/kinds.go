package output

import (
	"math"
	"strconv"
)

// Kind is the value shape inferred for a CSV column.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// InferKinds inspects every record and picks the narrowest kind that
// holds all non-empty values of each column. A value only counts as a
// number when re-formatting the parsed number reproduces the exact text,
// so "007" or "1e3" stay strings. Columns without any non-empty value are
// strings.
func InferKinds(columns []string, records [][]string) []Kind {
	kinds := make([]Kind, len(columns))
	for i := range columns {
		isInt, isFloat, isBool := true, true, true
		nonEmpty := 0

		for _, rec := range records {
			if i >= len(rec) || rec[i] == "" {
				continue
			}
			nonEmpty++
			s := rec[i]
			if isInt && !canonicalInt(s) {
				isInt = false
			}
			if isFloat && !canonicalFloat(s) {
				isFloat = false
			}
			if isBool && s != "true" && s != "false" {
				isBool = false
			}
			if !isInt && !isFloat && !isBool {
				break
			}
		}

		switch {
		case nonEmpty == 0:
			kinds[i] = KindString
		case isInt:
			kinds[i] = KindInt
		case isFloat:
			kinds[i] = KindFloat
		case isBool:
			kinds[i] = KindBool
		default:
			kinds[i] = KindString
		}
	}
	return kinds
}

func canonicalInt(s string) bool {
	v, err := strconv.ParseInt(s, 10, 64)
	return err == nil && strconv.FormatInt(v, 10) == s
}

func canonicalFloat(s string) bool {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return false
	}
	return strconv.FormatFloat(v, 'f', -1, 64) == s
}
