package sheet

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ListSeparator joins list values into a single cell.
const ListSeparator = "; "

// Table is a flattened, column-ordered view of JSON data.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Normalize flattens data into a Table. A list of objects gives one row per
// element, a single object gives one row, and any other value lands in a
// single "value" column. Nested objects become dotted column names. Columns
// named in preferred come first, the rest follow alphabetically.
func Normalize(data any, preferred ...string) Table {
	var records []map[string]any
	switch v := data.(type) {
	case []any:
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok {
				records = append(records, flatten("", obj, map[string]any{}))
			} else {
				records = append(records, map[string]any{"value": item})
			}
		}
	case map[string]any:
		records = []map[string]any{flatten("", v, map[string]any{})}
	case []map[string]any:
		for _, obj := range v {
			records = append(records, flatten("", obj, map[string]any{}))
		}
	default:
		records = []map[string]any{{"value": v}}
	}

	cols := columns(records, preferred)
	t := Table{Columns: cols, Rows: make([][]any, 0, len(records))}
	for _, rec := range records {
		row := make([]any, len(cols))
		for i, c := range cols {
			row[i] = cell(rec[c])
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func flatten(prefix string, obj map[string]any, out map[string]any) map[string]any {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok && len(nested) > 0 {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
	return out
}

func columns(records []map[string]any, preferred []string) []string {
	seen := map[string]bool{}
	for _, rec := range records {
		for k := range rec {
			seen[k] = true
		}
	}

	cols := make([]string, 0, len(seen))
	for _, p := range preferred {
		if seen[p] {
			cols = append(cols, p)
			delete(seen, p)
		}
	}
	rest := make([]string, 0, len(seen))
	for k := range seen {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(cols, rest...)
}

// cell converts a JSON value to something a worksheet cell can hold.
func cell(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case []any:
		return joinList(x)
	case []string:
		return strings.Join(x, ListSeparator)
	case map[string]any:
		b, _ := json.Marshal(x)
		return string(b)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	default:
		return x
	}
}

func joinList(items []any) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		switch x := it.(type) {
		case string:
			parts = append(parts, x)
		case nil:
		case map[string]any, []any:
			b, _ := json.Marshal(x)
			parts = append(parts, string(b))
		default:
			parts = append(parts, fmt.Sprint(x))
		}
	}
	return strings.Join(parts, ListSeparator)
}

// listItems returns the string elements of a list value.
func listItems(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, it := range x {
			if it == nil {
				continue
			}
			if s, ok := it.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(it))
			}
		}
		return out
	}
	return nil
}
