package evaluation

import "strings"

// Transcripts arrive as one string with speaker-tagged lines ("AGENT: ...",
// "CUSTOMER: ..."). The normalizer only reads them; it never mutates or stores
// anything across calls.

// recentContext keeps the last maxLines non-empty lines and caps the joined
// result at maxChars characters, so the grounding payload stays bounded no
// matter how long the call runs.
func recentContext(transcript string, maxLines int, maxChars int) string {
	lines := nonEmptyLines(transcript)
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return tailRunes(strings.Join(lines, "\n"), maxChars)
}

// agentOnly retains the agent-tagged lines in original order. This is the sole
// input to phase detection and is never forwarded verbatim to the generator.
func agentOnly(transcript string) string {
	var agentLines []string
	for _, ln := range nonEmptyLines(transcript) {
		if strings.HasPrefix(strings.ToUpper(ln), "AGENT:") {
			agentLines = append(agentLines, ln)
		}
	}
	return strings.Join(agentLines, "\n")
}

// hasCustomerTurn reports whether the customer has spoken at all. Every phase
// check that presupposes a customer turn is gated on this.
func hasCustomerTurn(transcript string) bool {
	return strings.Contains(strings.ToUpper(transcript), "CUSTOMER:")
}

func nonEmptyLines(transcript string) []string {
	var lines []string
	for _, ln := range strings.Split(transcript, "\n") {
		ln = strings.TrimSpace(ln)
		if ln != "" {
			lines = append(lines, ln)
		}
	}
	return lines
}

// tailRunes returns the last n characters of s, counting runes rather than
// bytes so multi-byte transcripts are not cut mid-character.
func tailRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
