package store

import (
	"encoding/json"
	"strings"
)

// placeholderList returns "?,?,?" for n placeholders.
func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// stringsToArgs converts []string to []any for use with database/sql.
func stringsToArgs(items []string) []any {
	args := make([]any, len(items))
	for i, s := range items {
		args[i] = s
	}
	return args
}

// marshalJSON converts a slice to JSON text for storage. Empty slices are
// stored as "[]".
func marshalJSON[T any](items []T) string {
	if len(items) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(items)
	return string(b)
}

// unmarshalJSON converts JSON text back to a slice. Empty and "[]" text
// leave dst nil.
func unmarshalJSON[T any](s string, dst *[]T) error {
	if s == "" || s == "null" || s == "[]" {
		*dst = nil
		return nil
	}
	return json.Unmarshal([]byte(s), dst)
}
