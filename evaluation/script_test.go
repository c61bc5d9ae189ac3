package evaluation

import "testing"

const openingLine = "AGENT: Hello, my name is Dana from the support team, how can I help?"

func TestScriptStateOpening(t *testing.T) {
	state := ScriptState("AGENT: Hi, this is Dana from support, how can I help?")
	if !state.Opening {
		t.Error("expected opening to be satisfied by a full opening line")
	}

	// All three cues are required, so a greeting alone is not enough.
	state = ScriptState("AGENT: Hi, this is Dana.")
	if state.Opening {
		t.Error("expected opening to be unsatisfied without affiliation and offer to help")
	}
}

func TestScriptStateOpeningAcrossTurns(t *testing.T) {
	// Known precision/recall tradeoff: an agent who opens across two short
	// turns only gets credit once both turns are in the scanned text.
	first := "AGENT: Hi, my name is Dana."
	if ScriptState(first).Opening {
		t.Error("expected opening to be unsatisfied after the first half of a split opening")
	}

	both := first + "\nAGENT: I'm from the support team, how can I help?"
	if !ScriptState(both).Opening {
		t.Error("expected opening to be satisfied once both turns are present")
	}
}

func TestScriptStateIgnoresCustomerLines(t *testing.T) {
	transcript := "AGENT: Hello.\nCUSTOMER: I'm sorry but I understand nothing about this invoice"
	state := ScriptState(transcript)
	if state.Empathy {
		t.Error("customer empathy phrasing must not credit the agent")
	}
}

func TestScriptStateClarifyByQuestionMark(t *testing.T) {
	state := ScriptState("AGENT: And the invoice arrived on Tuesday?")
	if !state.Clarify {
		t.Error("expected a literal question mark to satisfy clarify")
	}
}

func TestScriptStateMultipleFlagsFromOneUtterance(t *testing.T) {
	state := ScriptState("AGENT: I'm sorry to hear that, could you give me your phone number?")
	if !state.Empathy || !state.Clarify || !state.Identification {
		t.Errorf("expected one utterance to satisfy empathy, clarify and identification, got %+v", state)
	}
}

func TestScriptStateNearClosing(t *testing.T) {
	state := ScriptState("AGENT: Is there anything else I can do for you today?")
	if !state.NearClosing {
		t.Error("expected near-closing cue to be detected")
	}
	if state.Close {
		t.Error("near-closing cue alone must not satisfy close")
	}
}

func TestScriptStateIdempotent(t *testing.T) {
	transcript := openingLine + "\nCUSTOMER: My card was charged twice.\nAGENT: I'm sorry to hear that."
	first := ScriptState(transcript)
	second := ScriptState(transcript)
	if first != second {
		t.Errorf("expected identical states on re-evaluation, got %+v then %+v", first, second)
	}
}

func TestNextMissingStepOpeningFirst(t *testing.T) {
	// The opening rung is evaluated even before the customer has spoken.
	if got := NextMissingStep(ScriptState("AGENT: Hello there."), "AGENT: Hello there."); got != StepOpening {
		t.Errorf("expected opening, got %q", got)
	}
	if got := NextMissingStep(ScriptState(""), ""); got != StepOpening {
		t.Errorf("expected opening on empty transcript, got %q", got)
	}
}

func TestNextMissingStepNoCustomerYet(t *testing.T) {
	transcript := "AGENT: Hi, this is Dana from support, how can I help?"
	state := ScriptState(transcript)
	if got := NextMissingStep(state, transcript); got != "" {
		t.Errorf("with opening done and no customer turn, expected no step, got %q", got)
	}
}

func TestNextMissingStepGatesOnCustomerTurn(t *testing.T) {
	// Without a customer turn, none of the mid-call rungs may fire even when
	// their phases are unmet.
	transcript := "AGENT: Hi, this is Dana from support, how can I help?"
	state := ScriptState(transcript)
	state.Identification = false
	state.Empathy = false
	state.Clarify = false
	state.Restate = false
	state.Expectations = false

	got := NextMissingStep(state, transcript)
	switch got {
	case StepVerification, StepEmpathy, StepClarify, StepRestate, StepPlan:
		t.Errorf("mid-call step %q selected without a customer turn", got)
	}
}

func TestNextMissingStepLadder(t *testing.T) {
	base := openingLine + "\nCUSTOMER: I'm really upset, my card was charged twice"

	tests := []struct {
		name       string
		transcript string
		want       string
	}{
		{
			// Opening line asks "how can I help?" which also satisfies
			// identification ("name") and clarify ("how", "?"), so the
			// first unmet rung is empathy.
			name:       "empathy after upset customer",
			transcript: base,
			want:       StepEmpathy,
		},
		{
			name:       "restate after empathy",
			transcript: base + "\nAGENT: I'm sorry to hear that.",
			want:       StepRestate,
		},
		{
			name:       "plan after restate",
			transcript: base + "\nAGENT: I'm sorry to hear that. Just to confirm, you were charged twice?",
			want:       StepPlan,
		},
		{
			name: "close once near closing",
			transcript: base +
				"\nAGENT: I'm sorry to hear that. Just to confirm, you were charged twice?" +
				"\nAGENT: I'll check the charge and email you within 24 hours. Anything else?",
			want: StepClose,
		},
		{
			name: "survey after close",
			transcript: base +
				"\nAGENT: I'm sorry to hear that. Just to confirm, you were charged twice?" +
				"\nAGENT: I'll check the charge and email you within 24 hours. To summarize, the refund is on its way. Anything else?",
			want: StepSurvey,
		},
		{
			name: "nothing left to coach",
			transcript: base +
				"\nAGENT: I'm sorry to hear that. Just to confirm, you were charged twice?" +
				"\nAGENT: I'll check the charge and email you within 24 hours. To summarize, the refund is on its way. Anything else?" +
				"\nAGENT: You may receive a short survey after this call. Have a good day!",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := ScriptState(tt.transcript)
			if got := NextMissingStep(state, tt.transcript); got != tt.want {
				t.Errorf("NextMissingStep() = %q, want %q (state %+v)", got, tt.want, state)
			}
		})
	}
}

func TestNextMissingStepReturnsKnownLabels(t *testing.T) {
	known := map[string]bool{
		"": true, StepOpening: true, StepVerification: true, StepEmpathy: true,
		StepClarify: true, StepRestate: true, StepPlan: true, StepClose: true, StepSurvey: true,
	}

	transcripts := []string{
		"",
		"AGENT: Hello.",
		openingLine,
		openingLine + "\nCUSTOMER: My internet is down.",
		openingLine + "\nCUSTOMER: Help!\nAGENT: I'm sorry to hear that, goodbye.",
	}
	for _, transcript := range transcripts {
		got := NextMissingStep(ScriptState(transcript), transcript)
		if !known[got] {
			t.Errorf("unexpected step label %q for transcript %q", got, transcript)
		}
	}
}
