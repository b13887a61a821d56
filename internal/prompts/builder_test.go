package prompts

import "testing"

func TestBuilderJoinsFragments(t *testing.T) {
	got := NewBuilder("base").AddFragment("extra").Build()
	if got != "base\n\nextra" {
		t.Fatalf("got %q", got)
	}
}

func TestBuilderSkipsEmptyFragments(t *testing.T) {
	got := NewBuilder("base").AddFragment("").Build()
	if got != "base" {
		t.Fatalf("got %q, want no trailing separator for an empty fragment", got)
	}
}

func TestBuilderSubstitutesVariables(t *testing.T) {
	got := NewBuilder("hello {{name}}").SetVariable("name", "world").Build()
	if got != "hello world" {
		t.Fatalf("got %q", got)
	}
}
