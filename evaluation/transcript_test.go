package evaluation

import (
	"fmt"
	"strings"
	"testing"
)

func TestRecentContextKeepsLastLines(t *testing.T) {
	var lines []string
	for i := 0; i < 40; i++ {
		lines = append(lines, fmt.Sprintf("AGENT: line %d", i))
	}
	transcript := strings.Join(lines, "\n")

	got := recentContext(transcript, 14, 2400)
	gotLines := strings.Split(got, "\n")
	if len(gotLines) != 14 {
		t.Fatalf("expected 14 lines, got %d", len(gotLines))
	}
	if gotLines[0] != "AGENT: line 26" || gotLines[13] != "AGENT: line 39" {
		t.Errorf("expected the last 14 lines, got %q .. %q", gotLines[0], gotLines[13])
	}
}

func TestRecentContextSkipsBlankLinesAndCapsChars(t *testing.T) {
	long := strings.Repeat("x", 500)
	transcript := "\n\n  \n" + strings.Join([]string{
		"AGENT: " + long, "CUSTOMER: " + long, "AGENT: " + long,
		"CUSTOMER: " + long, "AGENT: " + long, "CUSTOMER: " + long,
	}, "\n\n")

	got := recentContext(transcript, 14, 2400)
	if strings.Contains(got, "\n\n") {
		t.Error("expected blank lines to be stripped")
	}
	if n := len([]rune(got)); n != 2400 {
		t.Errorf("expected context capped at 2400 chars, got %d", n)
	}
}

func TestAgentOnly(t *testing.T) {
	transcript := "AGENT: Hello.\nCUSTOMER: Hi.\nagent: still me\nCUSTOMER: ok\nAGENT: Bye."
	got := agentOnly(transcript)
	want := "AGENT: Hello.\nagent: still me\nAGENT: Bye."
	if got != want {
		t.Errorf("agentOnly() = %q, want %q", got, want)
	}
}

func TestHasCustomerTurn(t *testing.T) {
	if hasCustomerTurn("AGENT: Hello.\nAGENT: Anyone there?") {
		t.Error("expected no customer turn")
	}
	if !hasCustomerTurn("AGENT: Hello.\ncustomer: here") {
		t.Error("expected customer tag to match case-insensitively")
	}
}

func TestTailRunesMultibyte(t *testing.T) {
	s := strings.Repeat("é", 10)
	got := tailRunes(s, 4)
	if got != "éééé" {
		t.Errorf("tailRunes() = %q, want 4 unbroken runes", got)
	}
	if tailRunes("abc", 10) != "abc" {
		t.Error("short strings must pass through unchanged")
	}
}
