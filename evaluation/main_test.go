package evaluation

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"callcoach/logger"
)

// fakeGenerator stands in for the external generator so the advisory paths
// can be exercised without network access, including malformed replies.
type fakeGenerator struct {
	available bool
	reply     string
	err       error

	calls         int
	lastSystem    string
	lastUser      string
	lastMaxTokens int32
}

func (f *fakeGenerator) Available() bool { return f.available }

func (f *fakeGenerator) Generate(ctx context.Context, systemPrompt string, userPrompt string, maxTokens int32) (string, error) {
	f.calls++
	f.lastSystem = systemPrompt
	f.lastUser = userPrompt
	f.lastMaxTokens = maxTokens
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestAdvisor(coach Generator, grader Generator) *Advisor {
	logMiddleware := logger.Connect(logger.LoggerConnectProps{Production: false})
	return Connect(context.Background(), AdvisorConnectProps{Logger: logMiddleware, Coach: coach, Grader: grader})
}

const upsetTranscript = "AGENT: Hello, my name is Dana from the support team, how can I help?\n" +
	"CUSTOMER: I'm really upset, my card was charged twice"

func TestCoachTipsMissingCredential(t *testing.T) {
	a := newTestAdvisor(&fakeGenerator{available: false}, nil)
	got := a.CoachTips(context.Background(), upsetTranscript)
	want := CoachResult{ShouldIntervene: false, Tip: "", ReasonTag: "missing_key", Urgency: "low"}
	if got != want {
		t.Errorf("CoachTips() = %+v, want %+v", got, want)
	}
}

func TestCoachTipsNothingToCoachSkipsGenerator(t *testing.T) {
	fake := &fakeGenerator{available: true, reply: `{"should_intervene": true, "tip": "noise"}`}
	a := newTestAdvisor(fake, nil)

	// Opening satisfied, no customer turn yet: nothing to coach.
	got := a.CoachTips(context.Background(), "AGENT: Hi, this is Dana from support, how can I help?")
	want := CoachResult{ShouldIntervene: false, Tip: "", ReasonTag: "other", Urgency: "low"}
	if got != want {
		t.Errorf("CoachTips() = %+v, want %+v", got, want)
	}
	if fake.calls != 0 {
		t.Errorf("expected no generator call, got %d", fake.calls)
	}
}

func TestCoachTipsGroundingMessage(t *testing.T) {
	fake := &fakeGenerator{available: true, reply: `{"should_intervene": true, "tip": "Acknowledge the double charge first", "urgency": "medium"}`}
	a := newTestAdvisor(fake, nil)

	got := a.CoachTips(context.Background(), upsetTranscript)

	if fake.calls != 1 {
		t.Fatalf("expected one generator call, got %d", fake.calls)
	}
	if fake.lastMaxTokens != 160 {
		t.Errorf("expected coach token budget 160, got %d", fake.lastMaxTokens)
	}
	if !strings.Contains(fake.lastUser, "Next missing step to coach NOW: empathy") {
		t.Errorf("grounding message missing next step, got:\n%s", fake.lastUser)
	}
	if !strings.Contains(fake.lastUser, "- opening=true") || !strings.Contains(fake.lastUser, "- empathy=false") {
		t.Errorf("grounding message missing phase booleans, got:\n%s", fake.lastUser)
	}
	if !strings.Contains(fake.lastUser, "Transcript (recent):") {
		t.Error("grounding message missing recent-context section")
	}

	if !got.ShouldIntervene || got.Urgency != "medium" {
		t.Errorf("unexpected result %+v", got)
	}
	if got.ReasonTag != StepEmpathy {
		t.Errorf("expected reason to fall back to selected step, got %q", got.ReasonTag)
	}
}

func TestCoachTipsMalformedReply(t *testing.T) {
	fake := &fakeGenerator{available: true, reply: "Sure! Here's a tip: be nicer."}
	a := newTestAdvisor(fake, nil)

	got := a.CoachTips(context.Background(), upsetTranscript)
	want := CoachResult{ShouldIntervene: false, Tip: "", ReasonTag: "parse_error", Urgency: "low"}
	if got != want {
		t.Errorf("CoachTips() = %+v, want %+v", got, want)
	}
}

func TestCoachTipsTransportError(t *testing.T) {
	fake := &fakeGenerator{available: true, err: fmt.Errorf("boom")}
	a := newTestAdvisor(fake, nil)

	got := a.CoachTips(context.Background(), upsetTranscript)
	if got.ReasonTag != "parse_error" || got.ShouldIntervene {
		t.Errorf("expected safe default on transport error, got %+v", got)
	}
}

func TestGradeExamMissingCredential(t *testing.T) {
	a := newTestAdvisor(nil, &fakeGenerator{available: false})
	got := a.GradeExam(context.Background(), upsetTranscript)
	if got.Score != 0 || got.Pass {
		t.Errorf("expected zero failing score, got %+v", got)
	}
	if len(got.Improvements) != 1 || !strings.Contains(got.Improvements[0], "SECRET_KEY") {
		t.Errorf("expected credential hint improvement, got %v", got.Improvements)
	}
}

func TestGradeExamEmptyTranscript(t *testing.T) {
	fake := &fakeGenerator{available: true, reply: `{"score": 10}`}
	a := newTestAdvisor(nil, fake)

	a.GradeExam(context.Background(), "   \n ")
	if fake.lastUser != "(empty transcript)" {
		t.Errorf("expected placeholder payload, got %q", fake.lastUser)
	}
	if fake.lastMaxTokens != 280 {
		t.Errorf("expected exam token budget 280, got %d", fake.lastMaxTokens)
	}
}

func TestGradeExamBoundsPayload(t *testing.T) {
	fake := &fakeGenerator{available: true, reply: `{"score": 70}`}
	a := newTestAdvisor(nil, fake)

	transcript := strings.Repeat("AGENT: filler line about the invoice\n", 400)
	a.GradeExam(context.Background(), transcript)
	if n := len([]rune(fake.lastUser)); n > 4500 {
		t.Errorf("expected payload capped at 4500 chars, got %d", n)
	}
	if !strings.HasSuffix(strings.TrimSpace(transcript), strings.TrimSpace(fake.lastUser[len(fake.lastUser)-40:])) {
		t.Error("expected payload to be the transcript tail")
	}
}

func TestGradeExamTransportError(t *testing.T) {
	a := newTestAdvisor(nil, &fakeGenerator{available: true, err: fmt.Errorf("rate limited")})
	got := a.GradeExam(context.Background(), upsetTranscript)
	if got.Summary != "Could not parse grader output." || got.Score != 0 {
		t.Errorf("expected safe default, got %+v", got)
	}
	if len(got.Improvements) != 1 || got.Improvements[0] != "Try again." {
		t.Errorf("expected retry hint, got %v", got.Improvements)
	}
}

func TestEvaluateChecklistMeta(t *testing.T) {
	fake := &fakeGenerator{available: true, reply: `{"checklist_score": 80, "items": []}`}
	a := newTestAdvisor(nil, fake)

	level := 3
	got := a.EvaluateChecklist(context.Background(), EvaluateChecklistProps{
		Transcript:   upsetTranscript,
		CustomerType: "hard_unfair_charge",
		EmotionLevel: &level,
	})

	if fake.lastMaxTokens != 520 {
		t.Errorf("expected checklist token budget 520, got %d", fake.lastMaxTokens)
	}
	if !strings.Contains(fake.lastUser, "Meta: customer_type=hard_unfair_charge, emotion_level=3") {
		t.Errorf("expected meta suffix in payload, got:\n%s", fake.lastUser)
	}
	if got.ChecklistScore != 80 {
		t.Errorf("unexpected score %d", got.ChecklistScore)
	}
}

func TestEvaluateChecklistNoMeta(t *testing.T) {
	fake := &fakeGenerator{available: true, reply: `{"checklist_score": 80}`}
	a := newTestAdvisor(nil, fake)

	a.EvaluateChecklist(context.Background(), EvaluateChecklistProps{Transcript: upsetTranscript})
	if strings.Contains(fake.lastUser, "Meta:") {
		t.Errorf("expected no meta suffix, got:\n%s", fake.lastUser)
	}
}

func TestEvaluateChecklistMissingCredential(t *testing.T) {
	a := newTestAdvisor(nil, &fakeGenerator{available: false})
	got := a.EvaluateChecklist(context.Background(), EvaluateChecklistProps{Transcript: upsetTranscript})
	if got.ChecklistScore != 0 || len(got.Items) != 0 {
		t.Errorf("expected empty zero-score result, got %+v", got)
	}
	if len(got.Improvements) != 1 || !strings.Contains(got.Improvements[0], "SECRET_KEY") {
		t.Errorf("expected credential hint improvement, got %v", got.Improvements)
	}
}

func TestAdvisoryPathsAreIndependent(t *testing.T) {
	coach := &fakeGenerator{available: true, reply: `{"should_intervene": false, "tip": ""}`}
	grader := &fakeGenerator{available: true, reply: `{"score": 90, "summary": "great"}`}
	a := newTestAdvisor(coach, grader)

	_ = a.CoachTips(context.Background(), upsetTranscript)
	exam := a.GradeExam(context.Background(), upsetTranscript)

	if coach.calls != 1 || grader.calls != 1 {
		t.Errorf("expected one call per path, got coach=%d grader=%d", coach.calls, grader.calls)
	}
	if !exam.Pass {
		t.Errorf("expected pass derived from score, got %+v", exam)
	}
}
