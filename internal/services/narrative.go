// Package services – narrative adapter
//
// This file defines the Narrative contract the sessions consume and its
// production implementation on top of the llm client. Keeping the interface
// here lets tests substitute deterministic fakes without touching transport
// code.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/healthsphere/go-health-backend/internal/domain"
	"github.com/healthsphere/go-health-backend/internal/llm"
)

// Narrative is the request/response contract with the narrative-analysis
// service. Implementations must honor context cancellation and must report
// unavailability via llm.ErrUnavailable so sessions can degrade.
type Narrative interface {
	// GenerateQuestions produces a personalized question set from recent
	// check-in context. Items are unvalidated; the session filters them.
	GenerateQuestions(ctx context.Context, recent []domain.Checkin) ([]domain.Question, error)

	// AnalyzeCheckin produces the structured analysis for one submission.
	AnalyzeCheckin(ctx context.Context, c *domain.Checkin, recent []domain.Checkin) (*llm.CheckinAnalysis, error)

	// AnalyzeReport produces the structured narrative for OCR text.
	AnalyzeReport(ctx context.Context, ocrText string) (*llm.ReportAnalysis, error)

	// Chat produces the assistant reply for a user message with optional
	// health context and conversation history (oldest first).
	Chat(ctx context.Context, healthContext string, history []string, message string) (string, error)
}

// NarrativeClient implements Narrative on the chat-completions client.
type NarrativeClient struct {
	LLM *llm.Client
}

// GenerateQuestions renders recent check-ins into prompt context, requests a
// question list, and parses it.
func (n *NarrativeClient) GenerateQuestions(ctx context.Context, recent []domain.Checkin) ([]domain.Question, error) {
	raw, err := n.LLM.Complete(ctx, "", llm.QuestionPrompt(summarizeCheckins(recent), "General wellness"), 1500, 0.5)
	if err != nil {
		return nil, err
	}
	return llm.ParseQuestions(raw)
}

// AnalyzeCheckin requests the structured clinical analysis of a submission.
func (n *NarrativeClient) AnalyzeCheckin(ctx context.Context, c *domain.Checkin, recent []domain.Checkin) (*llm.CheckinAnalysis, error) {
	prompt := llm.CheckinAnalysisPrompt(
		c.Date.Format("2006-01-02"),
		c.Answers,
		c.Notes,
		summarizeCheckins(recent),
	)
	raw, err := n.LLM.Complete(ctx, "", prompt, 1000, 0)
	if err != nil {
		return nil, err
	}
	return llm.ParseCheckinAnalysis(raw)
}

// AnalyzeReport requests the structured narrative for extracted report text.
func (n *NarrativeClient) AnalyzeReport(ctx context.Context, ocrText string) (*llm.ReportAnalysis, error) {
	raw, err := n.LLM.Complete(ctx, "", llm.ReportAnalysisPrompt(ocrText), 2000, 0)
	if err != nil {
		return nil, err
	}
	return llm.ParseReportAnalysis(raw)
}

// Chat requests a conversational reply.
func (n *NarrativeClient) Chat(ctx context.Context, healthContext string, history []string, message string) (string, error) {
	system, prompt := llm.ChatPrompt(healthContext, history, message)
	return n.LLM.Complete(ctx, system, prompt, 1000, 0)
}

// summarizeCheckins renders recent check-ins as compact prompt context.
func summarizeCheckins(recent []domain.Checkin) string {
	if len(recent) == 0 {
		return "none"
	}
	lines := make([]string, 0, len(recent))
	for _, c := range recent {
		b, _ := json.Marshal(c.AnswerMap())
		line := fmt.Sprintf("%s: %s", c.Date.Format("2006-01-02"), b)
		if c.Notes != "" {
			line += " notes: " + c.Notes
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "; ")
}
