package assistant

import "testing"

func TestMatches(t *testing.T) {
	cases := []struct {
		triggers []string
		text     string
		want     bool
	}{
		{[]string{"hello"}, "well hello there", true},
		{[]string{"search for"}, "please search for cats", true},
		{[]string{"search for"}, "search  for cats", false},
		{[]string{"exit", "quit"}, "i want to quit now", true},
		{[]string{"exit", "quit"}, "stay", false},
		{nil, "anything", false},
		{[]string{"hi"}, "", false},
	}

	for _, c := range cases {
		if got := Matches(c.triggers, c.text); got != c.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", c.triggers, c.text, got, c.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  What's The TIME  "); got != "what's the time" {
		t.Fatalf("Normalize = %q", got)
	}
}

func TestHandlersFireOnlyOnTheirTriggers(t *testing.T) {
	for _, h := range DefaultHandlers() {
		for _, trig := range h.Triggers {
			text := "xx " + trig + " yy"
			if h.Guard(text) != !Matches(h.Unless, text) {
				t.Errorf("%s: guard mismatch for %q", h.Intent, text)
			}
			if !h.Guard(Normalize("XX " + trig)) {
				t.Errorf("%s: expected uppercase input %q to fire after normalization", h.Intent, trig)
			}
		}
		if h.Guard("zzz") {
			t.Errorf("%s: fired on text without triggers", h.Intent)
		}
	}
}

func TestAfterLast(t *testing.T) {
	if got := afterLast("youtube search for cats for dogs", "for"); got != " dogs" {
		t.Fatalf("afterLast = %q", got)
	}
	if got := afterLast("no separator", "for"); got != "no separator" {
		t.Fatalf("afterLast without separator = %q", got)
	}
}
