package opencode

import "testing"

func TestNormalizeFoldsEquivalentForms(t *testing.T) {
	cases := []string{
		"git@github.com:acme/widgets.git",
		"git@github.com:acme/widgets",
		"https://github.com/acme/widgets.git",
		"https://github.com/acme/widgets",
		"ssh://git@github.com/acme/widgets.git",
	}
	want := Normalize(cases[0])
	for _, c := range cases[1:] {
		if got := Normalize(c); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", c, got, want)
		}
	}
}

func TestNormalizeIsCaseInsensitiveOnHost(t *testing.T) {
	a := Normalize("https://GitHub.com/Acme/Widgets.git")
	b := Normalize("https://github.com/acme/widgets")
	if a != b {
		t.Fatalf("expected case-insensitive host/path folding, got %q vs %q", a, b)
	}
}

func TestProjectNameFromURL(t *testing.T) {
	name := ProjectNameFromURL("git@github.com:Acme/My Widgets.git")
	if name == "" {
		t.Fatalf("expected a non-empty project name")
	}
	for _, r := range name {
		if r == ' ' || r == '/' {
			t.Fatalf("expected project name to be filesystem-safe, got %q", name)
		}
	}
}
