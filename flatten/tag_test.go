package flatten

import "testing"

func TestTagTemplateWildcard(t *testing.T) {
	tmpl := NewTagTemplate("kube.*")
	if got := tmpl.Generate("node.cpu.usage_rate"); got != "kube.node.cpu.usage_rate" {
		t.Fatalf("unexpected tag: %s", got)
	}

	tmpl = NewTagTemplate("pre.*.post")
	if got := tmpl.Generate("x"); got != "pre.x.post" {
		t.Fatalf("unexpected tag: %s", got)
	}
}

func TestTagTemplateNoWildcard(t *testing.T) {
	tmpl := NewTagTemplate("fixed.tag")
	if got := tmpl.Generate("node.uptime"); got != "fixed.tag" {
		t.Fatalf("expected template unchanged, got %s", got)
	}
	if got := tmpl.Generate("something.else"); got != "fixed.tag" {
		t.Fatalf("expected constant output, got %s", got)
	}
}

func TestTagTemplateFirstWildcardWins(t *testing.T) {
	// Multiple wildcards are unsupported; only the first splits.
	tmpl := NewTagTemplate("a.*.b.*")
	if got := tmpl.Generate("x"); got != "a.x.b.*" {
		t.Fatalf("unexpected tag: %s", got)
	}
}

func TestSnakeCase(t *testing.T) {
	cases := map[string]string{
		"workingSetBytes": "working_set_bytes",
		"rxBytes":         "rx_bytes",
		"availableBytes":  "available_bytes",
		"maxpid":          "maxpid",
		"inodes":          "inodes",
	}
	for in, want := range cases {
		if got := snakeCase(in); got != want {
			t.Errorf("snakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLabelsWithDoesNotMutateParent(t *testing.T) {
	parent := Labels{"node": "n1", "name": "pod-scope"}
	child := parent.With("name", "child-scope", "container-name", "c1")

	if parent["name"] != "pod-scope" {
		t.Fatalf("parent mutated: %v", parent)
	}
	if child["name"] != "child-scope" || child["container-name"] != "c1" || child["node"] != "n1" {
		t.Fatalf("unexpected child labels: %v", child)
	}
}
