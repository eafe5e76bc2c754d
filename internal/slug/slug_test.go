package slug

import (
	"regexp"
	"strings"
	"testing"
)

var segment = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

func TestPermalink(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "Hello World", "hello-world"},
		{"with year", "Annual Report 2026", "annual-report-2026"},
		{"punctuation", "Hello, World! How's it going?", "hello-world-hows-it-going"},
		{"curly apostrophe", "Minister’s Office", "ministers-office"},
		{"ampersand", "Grants & Schemes", "grants-schemes"},
		{"accents folded", "Café Résumé", "cafe-resume"},
		{"umlaut folded", "Über die Brücke", "uber-die-brucke"},
		{"dotted version", "Version 2.0.1", "version-2-0-1"},
		{"iso date", "2026-02-25", "2026-02-25"},
		{"tabs and newlines", "hello\tworld\nagain", "hello-world-again"},
		{"leading and trailing junk", "  --Hello -- World--  ", "hello-world"},
		{"parentheses", "Deploying Services (2026 Edition)", "deploying-services-2026-edition"},
		{"non latin dropped", "Singapore 新加坡 Portal", "singapore-portal"},
		{"empty", "", ""},
		{"only symbols", "!@#$%^&*()", ""},
		{"only spaces", "     ", ""},
		{"single letter", "A", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Permalink(tt.input)
			if got != tt.want {
				t.Errorf("Permalink(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if got != "" && !segment.MatchString(got) {
				t.Errorf("Permalink(%q) = %q is not a valid segment", tt.input, got)
			}
		})
	}
}

func TestPermalinkTruncatesAtWordBoundary(t *testing.T) {
	title := strings.Repeat("department ", 30)
	got := Permalink(title)

	if len(got) > MaxLen {
		t.Fatalf("len = %d, want <= %d", len(got), MaxLen)
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("trailing hyphen in %q", got)
	}
	for _, word := range strings.Split(got, "-") {
		if word != "department" {
			t.Fatalf("word cut mid-way: %q in %q", word, got)
		}
	}
}

func TestPermalinkIdempotent(t *testing.T) {
	for _, s := range []string{"hello-world", "annual-report-2026", "a", "cafe-resume"} {
		if got := Permalink(s); got != s {
			t.Errorf("Permalink(%q) = %q, want unchanged", s, got)
		}
	}
}
