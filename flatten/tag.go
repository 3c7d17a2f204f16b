package flatten

import "strings"

// TagTemplate resolves the configured tag pattern into the final event tag.
// The pattern may contain a single '*'; the per-metric tag is substituted for
// it. Without a wildcard the pattern is emitted unchanged for every metric.
// Only the first '*' is honored if more than one is present.
type TagTemplate struct {
	prefix   string
	suffix   string
	wildcard bool
}

func NewTagTemplate(pattern string) TagTemplate {
	i := strings.Index(pattern, "*")
	if i < 0 {
		return TagTemplate{prefix: pattern}
	}
	return TagTemplate{prefix: pattern[:i], suffix: pattern[i+1:], wildcard: true}
}

func (t TagTemplate) Generate(name string) string {
	if !t.wildcard {
		return t.prefix
	}
	return t.prefix + name + t.suffix
}
