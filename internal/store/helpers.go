package store

import (
	"encoding/json"
	"fmt"
	"strings"
)

// placeholderList returns "?,?,?" for n placeholders.
func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// int64sToArgs converts []int64 to []any for use with database/sql.
func int64sToArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// marshalGeoTransform converts a geotransform to JSON text for storage.
func marshalGeoTransform(gt [6]float64) string {
	b, _ := json.Marshal(gt)
	return string(b)
}

// unmarshalGeoTransform converts JSON text back to a geotransform. Empty
// text yields the zero transform.
func unmarshalGeoTransform(s string) ([6]float64, error) {
	var gt [6]float64
	if s == "" || s == "null" {
		return gt, nil
	}
	if err := json.Unmarshal([]byte(s), &gt); err != nil {
		return gt, fmt.Errorf("geotransform %q: %w", s, err)
	}
	return gt, nil
}
