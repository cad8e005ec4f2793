// Package services – question sets
//
// This file owns question-set hygiene for the daily check-in: filtering of
// generated sets and the fixed fallback substituted when generation fails or
// filtering empties the set.
package services

import "github.com/healthsphere/go-health-backend/internal/domain"

// FallbackQuestionVersion tags check-ins answered against the fixed set so
// later scoring can tell generated and fallback submissions apart.
const FallbackQuestionVersion = "fallback-v1"

// severityOptions is the shared option list of the fixed set. Option labels
// lead with the severity token the scorer prefix-matches on.
var severityOptions = []string{
	"None",
	"Mild - noticeable but manageable",
	"Moderate - affecting my day",
	"Severe - hard to function",
}

// FallbackQuestions returns the legacy fixed 12-question set. The returned
// slice is freshly allocated; callers may mutate it.
func FallbackQuestions() []domain.Question {
	prompts := []struct {
		id, prompt, category string
	}{
		{"headache", "How severe are your headaches today?", "pain"},
		{"sleep", "How much trouble did you have sleeping last night?", "sleep"},
		{"stress", "How stressed or low have you felt today?", "mood"},
		{"nausea", "How much nausea have you experienced today?", "digestive"},
		{"weakness", "How weak or faint have you felt today?", "energy"},
		{"fatigue", "How tired have you been today?", "energy"},
		{"appetite", "How disturbed has your appetite been today?", "digestive"},
		{"mood", "How down has your mood been today?", "mood"},
		{"pain", "How much body pain are you in today?", "pain"},
		{"concentration", "How hard has it been to concentrate today?", "cognition"},
		{"dizziness", "How dizzy have you felt today?", "neurological"},
		{"breathing", "How much difficulty breathing have you had today?", "respiratory"},
	}
	out := make([]domain.Question, 0, len(prompts))
	for _, p := range prompts {
		out = append(out, domain.Question{
			ID:       p.id,
			Prompt:   p.prompt,
			Type:     domain.QuestionTypeScale,
			Options:  append([]string(nil), severityOptions...),
			Required: true,
			Category: p.category,
		})
	}
	return out
}

// FilterQuestions drops generated items that are not renderable: empty id or
// prompt, a type other than "scale", or an empty option list. Order is
// preserved.
func FilterQuestions(in []domain.Question) []domain.Question {
	out := make([]domain.Question, 0, len(in))
	for _, q := range in {
		if q.Valid() {
			out = append(out, q)
		}
	}
	return out
}
