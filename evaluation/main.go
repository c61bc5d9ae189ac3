package evaluation

import (
	"context"
	"fmt"
	"strings"

	"callcoach/logger"
	"callcoach/modelapi"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Generator is the capability the advisory paths need from an external
// text-generation collaborator. It is a potentially slow, externally
// rate-limited synchronous call; callers apply their own timeout via ctx.
type Generator interface {
	Available() bool
	Generate(ctx context.Context, systemPrompt string, userPrompt string, maxTokens int32) (string, error)
}

// Payload bounds keep generator latency predictable regardless of call length.
const (
	coachContextLines  = 14
	coachContextChars  = 2400
	coachMaxTokens     = 160
	examTailChars      = 4500
	examMaxTokens      = 280
	checklistTailChars = 6500
	checklistMaxTokens = 520
)

const credentialHint = "Set GEMINI_SECRET_KEY or OPENAI_SECRET_KEY and restart the server."

type AdvisorConnectProps struct {
	Logger *logger.LogMiddleware
	Coach  Generator
	Grader Generator
}

// Advisor runs the three advisory paths over a call transcript: real-time
// coaching tips, full-call exam grading and the after-call checklist report.
// It holds no per-call state; concurrent evaluations are independent.
type Advisor struct {
	logger *logger.LogMiddleware
	coach  Generator
	grader Generator
}

func Connect(ctx context.Context, args AdvisorConnectProps) *Advisor {
	tracer := otel.Tracer("evaluation/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()
	args.Logger.Logger(ctx).Info("[Evaluation] Connecting advisor",
		zap.Bool("coach_available", args.Coach != nil && args.Coach.Available()),
		zap.Bool("grader_available", args.Grader != nil && args.Grader.Available()))

	return &Advisor{logger: args.Logger, coach: args.Coach, grader: args.Grader}
}

// buildCoachGroundingMessage assembles the grounding context for the coaching
// generator: the full phase state as labeled booleans, the single step to
// coach now, and the bounded recent-transcript window.
func buildCoachGroundingMessage(state PhaseState, missing string, focus string) string {
	var b strings.Builder
	b.WriteString("Call-script status (True/False):\n")
	fmt.Fprintf(&b, "- opening=%v\n", state.Opening)
	fmt.Fprintf(&b, "- identification=%v\n", state.Identification)
	fmt.Fprintf(&b, "- empathy=%v\n", state.Empathy)
	fmt.Fprintf(&b, "- clarify=%v\n", state.Clarify)
	fmt.Fprintf(&b, "- restate=%v\n", state.Restate)
	fmt.Fprintf(&b, "- expectations=%v\n", state.Expectations)
	fmt.Fprintf(&b, "- close=%v\n", state.Close)
	fmt.Fprintf(&b, "- feedback=%v\n", state.Feedback)
	fmt.Fprintf(&b, "Next missing step to coach NOW: %s\n\n", missing)
	fmt.Fprintf(&b, "Transcript (recent):\n%s", focus)
	return b.String()
}

// CoachTips derives the phase state from the transcript so far, picks the
// single highest-priority missing step, and asks the coach generator for one
// short intervention. Every failure mode returns a safe default result.
func (a *Advisor) CoachTips(ctx context.Context, transcript string) CoachResult {
	tracer := otel.Tracer("evaluation/CoachTips")
	ctx, span := tracer.Start(ctx, "CoachTips")
	defer span.End()
	span.SetAttributes(attribute.Int("transcript.length", len(transcript)))

	if a.coach == nil || !a.coach.Available() {
		span.AddEvent("GeneratorUnavailable")
		return CoachResult{ShouldIntervene: false, Tip: "", ReasonTag: "missing_key", Urgency: "low"}
	}

	state := ScriptState(transcript)
	missing := NextMissingStep(state, transcript)
	span.SetAttributes(attribute.String("next_step", missing))

	if missing == "" {
		return CoachResult{ShouldIntervene: false, Tip: "", ReasonTag: "other", Urgency: "low"}
	}

	focus := recentContext(transcript, coachContextLines, coachContextChars)
	userMsg := buildCoachGroundingMessage(state, missing, focus)

	raw, err := a.coach.Generate(ctx, modelapi.COACH_SYSTEM_PROMPT, userMsg, coachMaxTokens)
	if err != nil {
		span.RecordError(err)
		a.logger.Logger(ctx).Warn("[Evaluation] Coach generation failed", zap.Error(err), zap.String("next_step", missing))
		return CoachResult{ShouldIntervene: false, Tip: "", ReasonTag: "parse_error", Urgency: "low"}
	}

	return sanitizeCoachReply(raw, missing)
}

// GradeExam grades the whole call against the rubric. The grader sees the last
// examTailChars characters of the transcript; phase detection is not involved.
func (a *Advisor) GradeExam(ctx context.Context, transcript string) ExamResult {
	tracer := otel.Tracer("evaluation/GradeExam")
	ctx, span := tracer.Start(ctx, "GradeExam")
	defer span.End()
	span.SetAttributes(attribute.Int("transcript.length", len(transcript)))

	if a.grader == nil || !a.grader.Available() {
		span.AddEvent("GeneratorUnavailable")
		return ExamResult{
			Score:        0,
			Pass:         false,
			Summary:      "Missing generator API key",
			Strengths:    []string{},
			Improvements: []string{credentialHint},
		}
	}

	payload := strings.TrimSpace(tailRunes(transcript, examTailChars))
	if payload == "" {
		payload = "(empty transcript)"
	}

	raw, err := a.grader.Generate(ctx, modelapi.GRADER_RUBRIC, payload, examMaxTokens)
	if err != nil {
		span.RecordError(err)
		a.logger.Logger(ctx).Warn("[Evaluation] Exam grading failed", zap.Error(err))
		return ExamResult{
			Score:        0,
			Pass:         false,
			Summary:      "Could not parse grader output.",
			Strengths:    []string{},
			Improvements: []string{"Try again."},
		}
	}

	return sanitizeExamReply(raw)
}

type EvaluateChecklistProps struct {
	Transcript   string
	CustomerType string
	EmotionLevel *int
}

// EvaluateChecklist produces the after-call itemized report. Like GradeExam it
// evaluates the call holistically from a bounded transcript tail, optionally
// annotated with the customer archetype and emotion intensity.
func (a *Advisor) EvaluateChecklist(ctx context.Context, args EvaluateChecklistProps) ChecklistResult {
	tracer := otel.Tracer("evaluation/EvaluateChecklist")
	ctx, span := tracer.Start(ctx, "EvaluateChecklist")
	defer span.End()
	span.SetAttributes(
		attribute.Int("transcript.length", len(args.Transcript)),
		attribute.String("customer_type", args.CustomerType))

	if a.grader == nil || !a.grader.Available() {
		span.AddEvent("GeneratorUnavailable")
		return ChecklistResult{
			ChecklistScore: 0,
			Items:          []ChecklistItem{},
			Highlights:     []string{},
			Improvements:   []string{credentialHint},
			NextTimeSay:    []string{},
		}
	}

	payload := strings.TrimSpace(tailRunes(args.Transcript, checklistTailChars))
	if payload == "" {
		payload = "(empty transcript)"
	}

	var meta []string
	if args.CustomerType != "" {
		meta = append(meta, "customer_type="+args.CustomerType)
	}
	if args.EmotionLevel != nil {
		meta = append(meta, fmt.Sprintf("emotion_level=%d", *args.EmotionLevel))
	}
	if len(meta) > 0 {
		payload += "\nMeta: " + strings.Join(meta, ", ")
	}

	raw, err := a.grader.Generate(ctx, modelapi.CHECKLIST_SYSTEM_PROMPT, payload, checklistMaxTokens)
	if err != nil {
		span.RecordError(err)
		a.logger.Logger(ctx).Warn("[Evaluation] Checklist evaluation failed", zap.Error(err))
		return ChecklistResult{
			ChecklistScore: 0,
			Items:          []ChecklistItem{},
			Highlights:     []string{},
			Improvements:   []string{"Could not parse checklist output."},
			NextTimeSay:    []string{},
		}
	}

	return sanitizeChecklistReply(raw)
}
