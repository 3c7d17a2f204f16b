package flatten

import (
	"strings"
	"time"
	"unicode"
)

// MetricEvent is a single flattened measurement. Fields holds exactly one
// "value" entry plus the identity labels of the entity it was measured on.
type MetricEvent struct {
	Tag       string                 `json:"tag"`
	Timestamp time.Time              `json:"time"`
	Fields    map[string]interface{} `json:"fields"`
}

// Labels is the identity context carried down the summary tree. Contexts are
// never mutated in place; each level overlays its own keys on a fresh copy so
// sibling branches cannot leak labels into each other.
type Labels map[string]string

// With returns a copy of l with the given key/value pairs overlaid. A key
// present in both takes the new value.
func (l Labels) With(kv ...string) Labels {
	out := make(Labels, len(l)+len(kv)/2)
	for k, v := range l {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = kv[i+1]
	}
	return out
}

// snakeCase converts a mixed-case stats field name to the underscore form
// used in tags: an underscore is inserted before every uppercase letter,
// which is then lowercased. snakeCase("workingSetBytes") == "working_set_bytes".
func snakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		if unicode.IsUpper(r) {
			b.WriteByte('_')
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
