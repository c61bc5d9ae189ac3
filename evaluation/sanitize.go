package evaluation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// The sanitizers convert untrusted generator text into bounded result records.
// Decode failure never propagates: each variant returns its documented safe
// default instead. On success every field is independently coerced, clamped or
// defaulted, so one bad field cannot invalidate the rest of the response.

// CoachResult is the live coaching tip contract.
type CoachResult struct {
	ShouldIntervene bool   `json:"should_intervene"`
	Tip             string `json:"tip"`
	ReasonTag       string `json:"reason_tag"`
	Urgency         string `json:"urgency"`
	ToneHint        string `json:"tone_hint,omitempty"`
}

// ExamResult is the full-call rubric grading contract.
type ExamResult struct {
	Score        int      `json:"score"`
	Pass         bool     `json:"pass"`
	Summary      string   `json:"summary"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// ChecklistItem is one scored step of the after-call report. Items missing an
// id or title are dropped, never fatal.
type ChecklistItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Evidence string `json:"evidence"`
	Note     string `json:"note"`
}

// ChecklistResult is the after-call itemized report contract.
type ChecklistResult struct {
	ChecklistScore int             `json:"checklist_score"`
	Items          []ChecklistItem `json:"items"`
	Highlights     []string        `json:"highlights"`
	Improvements   []string        `json:"improvements"`
	NextTimeSay    []string        `json:"next_time_say"`
}

const (
	maxTipWords      = 14
	maxEvidenceWords = 12
	maxNoteWords     = 18
	maxStrengths     = 5
	maxImprovements  = 7
	maxItemIDLen     = 40
	maxItemTitleLen  = 60
	maxHighlights    = 4
	maxChecklistImps = 6
	maxNextTimeSay   = 2
)

var allowedReasonTags = map[string]bool{
	"opening": true, "verification": true, "empathy": true, "clarify": true,
	"restate": true, "plan": true, "close": true, "survey": true,
	"tone": true, "control": true, "other": true,
}

var allowedUrgencies = map[string]bool{"low": true, "medium": true, "high": true}

var allowedItemStatuses = map[string]bool{"done": true, "partial": true, "missing": true}

// sanitizeCoachReply validates the coaching-tip response. fallbackReason is
// the step label the selector picked, used when the generator omits its own
// reason_tag.
func sanitizeCoachReply(raw string, fallbackReason string) CoachResult {
	var data map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &data); err != nil {
		return CoachResult{ShouldIntervene: false, Tip: "", ReasonTag: "parse_error", Urgency: "low"}
	}

	tip := looseString(data["tip"])
	words := strings.Fields(tip)
	if len(words) > maxTipWords {
		tip = strings.Join(words[:maxTipWords], " ")
	}

	reason := strings.ToLower(looseString(data["reason_tag"]))
	if reason == "" {
		reason = fallbackReason
	}
	if reason == "" {
		reason = "other"
	}
	if !allowedReasonTags[reason] {
		reason = "other"
	}

	urgency := strings.ToLower(looseString(data["urgency"]))
	if urgency == "" {
		urgency = "low"
	}
	if !allowedUrgencies[urgency] {
		urgency = "low"
	}

	should := looseBool(data["should_intervene"])
	if tip == "" {
		should = false
	}

	out := CoachResult{ShouldIntervene: should, Tip: tip, ReasonTag: reason, Urgency: urgency}
	if hint, ok := data["tone_hint"]; ok {
		out.ToneHint = looseString(hint)
	}
	return out
}

// sanitizeExamReply validates the exam grading response. A malformed reply
// degrades to the zero-score explanatory result rather than an error.
func sanitizeExamReply(raw string) ExamResult {
	var data map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &data); err != nil {
		return ExamResult{
			Score:        0,
			Pass:         false,
			Summary:      "Could not parse grader output.",
			Strengths:    []string{},
			Improvements: []string{"Try again."},
		}
	}

	score := clampInt(looseInt(data["score"]), 0, 100)

	passed := score >= 70
	if v, ok := data["pass"]; ok {
		passed = looseBool(v)
	}

	strengths := looseStringList(data["strengths"])
	if len(strengths) > maxStrengths {
		strengths = strengths[:maxStrengths]
	}
	improvements := looseStringList(data["improvements"])
	if len(improvements) > maxImprovements {
		improvements = improvements[:maxImprovements]
	}

	return ExamResult{
		Score:        score,
		Pass:         passed,
		Summary:      looseString(data["summary"]),
		Strengths:    strengths,
		Improvements: improvements,
	}
}

// sanitizeChecklistReply validates the after-call checklist response.
func sanitizeChecklistReply(raw string) ChecklistResult {
	var data map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &data); err != nil {
		return ChecklistResult{
			ChecklistScore: 0,
			Items:          []ChecklistItem{},
			Highlights:     []string{},
			Improvements:   []string{"Could not parse checklist output."},
			NextTimeSay:    []string{},
		}
	}

	score := clampInt(looseInt(data["checklist_score"]), 0, 100)

	cleanItems := []ChecklistItem{}
	if rawItems, ok := data["items"].([]any); ok {
		for _, entry := range rawItems {
			it, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			id := truncRunes(looseString(it["id"]), maxItemIDLen)
			title := truncRunes(looseString(it["title"]), maxItemTitleLen)
			if id == "" || title == "" {
				continue
			}
			status := strings.ToLower(looseString(it["status"]))
			if !allowedItemStatuses[status] {
				status = "missing"
			}
			cleanItems = append(cleanItems, ChecklistItem{
				ID:       id,
				Title:    title,
				Status:   status,
				Evidence: clampWords(looseString(it["evidence"]), maxEvidenceWords),
				Note:     clampWords(looseString(it["note"]), maxNoteWords),
			})
		}
	}

	return ChecklistResult{
		ChecklistScore: score,
		Items:          cleanItems,
		Highlights:     cleanStringList(data["highlights"], maxHighlights),
		Improvements:   cleanStringList(data["improvements"], maxChecklistImps),
		NextTimeSay:    cleanStringList(data["next_time_say"], maxNextTimeSay),
	}
}

// looseString renders any decoded JSON value as a trimmed string, treating
// null/false/0/empty as absent.
func looseString(v any) string {
	if !looseBool(v) {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strings.TrimSpace(strconv.FormatFloat(s, 'f', -1, 64))
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// looseBool applies loose truthiness to a decoded JSON value: null, false, 0,
// "" and empty collections are false, everything else is true.
func looseBool(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func looseInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		return n
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// looseStringList coerces each element to a string without filtering, so the
// caller's count caps apply to the generator's original ordering.
func looseStringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, looseString(item))
	}
	return out
}

// cleanStringList trims, drops empties and caps the count.
func cleanStringList(v any, max int) []string {
	out := []string{}
	items, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		s := looseString(item)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == max {
			break
		}
	}
	return out
}

func clampWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
