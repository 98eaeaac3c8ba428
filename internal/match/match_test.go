package match

import (
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func compile(t *testing.T, pats ...string) []*regexp.Regexp {
	t.Helper()
	out := make([]*regexp.Regexp, 0, len(pats))
	for _, p := range pats {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

func TestMatch(t *testing.T) {
	cases := []struct {
		name      string
		body      string
		patterns  []string
		satisfied bool
		missing   []string
	}{
		{"all present", "<html>spam eggs</html>", []string{"spam", "eggs"}, true, nil},
		{"one missing", "ham, spam, eggs", []string{"ham", "spam", "eggs", "hammers"}, false, []string{"hammers"}},
		{"none present", "nothing here", []string{"a+b", "^z"}, false, []string{"a+b", "^z"}},
		{"empty set", "anything", nil, true, nil},
		{"empty body empty set", "", nil, true, nil},
		{"regex search not full match", "version 1.23.4 released", []string{`\d+\.\d+`}, true, nil},
		{"anchored miss", "xabc", []string{"^abc"}, false, []string{"^abc"}},
		{"utf8 text", "Leoš Janáček – Körmusik", []string{"Leoš Janáček", "Körmusik", "Sånger"}, false, []string{"Sånger"}},
		{"missing keeps order", "b", []string{"c", "b", "a"}, false, []string{"c", "a"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Match(c.body, compile(t, c.patterns...))
			if got.Satisfied != c.satisfied {
				t.Fatalf("Satisfied=%v want %v", got.Satisfied, c.satisfied)
			}
			if diff := cmp.Diff(c.missing, got.Missing); diff != "" {
				t.Fatalf("Missing mismatch (-want +got):\n%s", diff)
			}
			if len(got.Hits)+len(got.Missing) != len(c.patterns) {
				t.Fatalf("every pattern must be a hit or missing: hits=%d missing=%d", len(got.Hits), len(got.Missing))
			}
		})
	}
}

func TestMatch_HitsReportOffsetAndText(t *testing.T) {
	got := Match("<html>spam eggs</html>", compile(t, `</html>`, `eg+s`))
	want := []Hit{
		{Pattern: `</html>`, Offset: 15, Text: "</html>"},
		{Pattern: `eg+s`, Offset: 11, Text: "eggs"},
	}
	if diff := cmp.Diff(want, got.Hits); diff != "" {
		t.Fatalf("Hits mismatch (-want +got):\n%s", diff)
	}
}
