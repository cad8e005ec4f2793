package llm

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/healthsphere/go-health-backend/internal/domain"
)

// ErrBadPayload is returned when model output cannot be parsed as the
// expected JSON shape even after fence stripping.
var ErrBadPayload = errors.New("unparseable model output")

// ExtractJSONBlock returns the contents of a ```json fenced block when one is
// present, otherwise the input unchanged. Models frequently wrap structured
// output in fences despite being asked not to.
func ExtractJSONBlock(s string) string {
	const open = "```json"
	i := strings.Index(s, open)
	if i < 0 {
		return strings.TrimSpace(s)
	}
	rest := s[i+len(open):]
	if j := strings.Index(rest, "```"); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}

// ParseQuestions decodes a generated question list. Invalid JSON yields
// ErrBadPayload; item-level validation is the caller's concern.
func ParseQuestions(raw string) ([]domain.Question, error) {
	var out []domain.Question
	if err := json.Unmarshal([]byte(ExtractJSONBlock(raw)), &out); err != nil {
		return nil, ErrBadPayload
	}
	return out, nil
}

// CheckinAnalysis is the structured result the narrative service produces
// for one check-in submission.
type CheckinAnalysis struct {
	RiskScore       float64  `json:"risk_score"`
	Concerns        []string `json:"concerns"`
	Trends          string   `json:"trends"`
	Recommendations []string `json:"recommendations"`
	Summary         string   `json:"summary"`
}

// ParseCheckinAnalysis decodes a check-in analysis object.
func ParseCheckinAnalysis(raw string) (*CheckinAnalysis, error) {
	var out CheckinAnalysis
	if err := json.Unmarshal([]byte(ExtractJSONBlock(raw)), &out); err != nil {
		return nil, ErrBadPayload
	}
	return &out, nil
}

// ReportAnalysis is the structured narrative produced for an uploaded
// medical report. Urgency runs 1 (low) to 5 (urgent).
type ReportAnalysis struct {
	Summary         string   `json:"summary"`
	Findings        []string `json:"findings"`
	LabValues       []Lab    `json:"lab_values"`
	Diagnoses       []string `json:"diagnoses"`
	Medications     []string `json:"medications"`
	Urgency         int      `json:"urgency"`
	Recommendations []string `json:"recommendations"`
}

// Lab is one extracted lab value with its clinical significance.
type Lab struct {
	TestName     string `json:"test_name"`
	Value        string `json:"value"`
	Significance string `json:"significance"`
}

// ParseReportAnalysis decodes a report analysis object and clamps urgency
// into its 1-5 range (a missing value defaults to 3, matching the stored
// column default).
func ParseReportAnalysis(raw string) (*ReportAnalysis, error) {
	var out ReportAnalysis
	if err := json.Unmarshal([]byte(ExtractJSONBlock(raw)), &out); err != nil {
		return nil, ErrBadPayload
	}
	if out.Urgency == 0 {
		out.Urgency = 3
	}
	if out.Urgency < 1 {
		out.Urgency = 1
	}
	if out.Urgency > 5 {
		out.Urgency = 5
	}
	return &out, nil
}
