package evaluation

import (
	"regexp"
	"strings"
)

// PhaseState is a snapshot of which call-script phases the agent has already
// satisfied, recomputed from the full transcript on every evaluation. The
// predicates are deliberately lenient, high-recall heuristics: crediting a
// phase slightly early costs less training value than nagging about a step the
// agent already did.
type PhaseState struct {
	Opening        bool `json:"opening_done"`
	Identification bool `json:"identification_done"`
	Empathy        bool `json:"empathy_done"`
	Clarify        bool `json:"clarify_done"`
	Restate        bool `json:"restate_done"`
	Expectations   bool `json:"expectations_done"`
	Close          bool `json:"close_done"`
	Feedback       bool `json:"feedback_done"`

	// NearClosing is a derived signal, not a completed phase: it gates
	// whether close/feedback should even be expected yet.
	NearClosing bool `json:"near_closing"`
}

var (
	reOpeningSelf  = regexp.MustCompile(`\b(my name is|this is)\b`)
	reOpeningTeam  = regexp.MustCompile(`\b(team|support|from|company)\b`)
	reOpeningHelp  = regexp.MustCompile(`\bhow can i help\b`)
	reIdentify     = regexp.MustCompile(`\b(name|last\s*(4|four)|id|phone|phone number|email)\b`)
	reEmpathy      = regexp.MustCompile(`\b(i understand|i'm sorry|sorry to hear|that sounds|i can imagine|i appreciate)\b`)
	reClarify      = regexp.MustCompile(`\b(can you|could you|may i|what|when|where|which|how)\b`)
	reRestate      = regexp.MustCompile(`\b(just to confirm|to confirm|to make sure i understand|if i understand|so you('re| are))\b`)
	reExpectations = regexp.MustCompile(`\b(next step|what i('ll| will) do|i('ll| will) (check|look|review|open|create|email|call)|within|today|tomorrow|minutes|hours|by (the end|eod))\b`)
	reClose        = regexp.MustCompile(`\b(to summarize|just to summarize|summary|recap)\b`)
	reFeedback     = regexp.MustCompile(`\b(survey|feedback|rate|rating)\b`)
	reNearClosing  = regexp.MustCompile(`\b(anything else|have a (good|nice) day|goodbye|bye|thank you for calling)\b`)
)

// ScriptState evaluates every phase predicate over the lowercased agent-only
// text. Predicates are independent and not mutually exclusive: a single
// utterance can satisfy several phases at once.
func ScriptState(transcript string) PhaseState {
	a := strings.ToLower(agentOnly(transcript))

	return PhaseState{
		// Opening requires all three cues in the scanned agent text. An
		// agent who opens across two short turns only passes once both
		// turns are in the transcript.
		Opening: reOpeningSelf.MatchString(a) &&
			reOpeningTeam.MatchString(a) &&
			reOpeningHelp.MatchString(a),
		Identification: reIdentify.MatchString(a),
		Empathy:        reEmpathy.MatchString(a),
		Clarify:        reClarify.MatchString(a) || strings.Contains(a, "?"),
		Restate:        reRestate.MatchString(a),
		Expectations:   reExpectations.MatchString(a),
		Close:          reClose.MatchString(a),
		Feedback:       reFeedback.MatchString(a),
		NearClosing:    reNearClosing.MatchString(a),
	}
}

// Coaching step labels. At most one is selected per evaluation.
const (
	StepOpening      = "opening"
	StepVerification = "verification"
	StepEmpathy      = "empathy"
	StepClarify      = "clarify"
	StepRestate      = "restate"
	StepPlan         = "plan"
	StepClose        = "close"
	StepSurvey       = "survey"
)

// NextMissingStep walks the script priority ladder top to bottom and returns
// the first unmet step, or "" when there is nothing to coach right now. One
// step per call keeps the trainee's cognitive load low. Everything past the
// opening is gated on the customer having spoken; close/survey are gated on
// the near-closing signal instead.
func NextMissingStep(state PhaseState, transcript string) string {
	if !state.Opening {
		return StepOpening
	}

	if hasCustomerTurn(transcript) {
		switch {
		case !state.Identification:
			return StepVerification
		case !state.Empathy:
			return StepEmpathy
		case !state.Clarify:
			return StepClarify
		case !state.Restate:
			return StepRestate
		case !state.Expectations:
			return StepPlan
		}
	}

	if state.NearClosing {
		if !state.Close {
			return StepClose
		}
		if !state.Feedback {
			return StepSurvey
		}
	}

	return ""
}
