package obfuscate

import (
	"encoding/json"
	"strconv"
	"time"
	"unicode/utf8"
)

// Text coerces a row value to its text form. It reports false for values
// with no scalar text form: nil, slices, maps and invalid UTF-8 bytes.
func Text(v interface{}) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case []byte:
		if !utf8.Valid(val) {
			return "", false
		}
		return string(val), true
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case int32:
		return strconv.FormatInt(int64(val), 10), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case uint64:
		return strconv.FormatUint(val, 10), true
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32), true
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), true
	case time.Time:
		return val.Format(time.RFC3339Nano), true
	default:
		return "", false
	}
}
