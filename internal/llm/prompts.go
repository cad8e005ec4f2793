package llm

import (
	"fmt"
	"strings"
)

// Prompt builders. Kept together so the full conversational surface of the
// narrative service is reviewable in one place.

// chatSystemPrompt frames the assistant persona and its guardrails.
const chatSystemPrompt = `You are 'Health Sphere', a helpful and empathetic health assistant.

Guidelines:
- Provide helpful, general health information.
- Be empathetic and supportive.
- Crucially: Do not provide specific medical diagnoses or treatment plans.
- Always suggest consulting a healthcare provider for medical advice, diagnosis, or persistent symptoms.`

// QuestionPrompt asks for 8-10 personalized check-in questions as a JSON
// list. recentCheckins and concerns are rendered summaries of the user's
// context, not raw rows.
func QuestionPrompt(recentCheckins, concerns string) string {
	return fmt.Sprintf(`Generate 8-10 personalized health check-in questions.

Context:
- Previous responses: %s
- Current concerns: %s

Format the output as a single, valid JSON list (e.g., [{...}, {...}]).
Each question object must follow this exact format:
{
  "id": "q1",
  "question": "How is your energy level today?",
  "type": "scale",
  "options": ["None", "Mild", "Moderate", "Severe"],
  "required": true,
  "category": "energy"
}

Generate questions relevant to the user's context.
Ensure 'id' is unique for each question (e.g., "q1", "q2", "q3").`, recentCheckins, concerns)
}

// CheckinAnalysisPrompt asks for a structured clinical analysis of one
// submission with recent history as context.
func CheckinAnalysisPrompt(date, answersJSON, notes, recentCheckins string) string {
	return fmt.Sprintf(`Analyze this daily health check-in data in a professional, clinical tone:

Date: %s
Responses: %s
Notes: %s

Previous check-ins for context: %s

Provide a structured JSON output with the following keys:
1. "risk_score": A float between 0.0 (low risk) and 1.0 (high risk).
2. "concerns": A list of strings identifying key concerns or red flags.
3. "trends": A brief string analyzing trends.
4. "recommendations": A list of 2-3 actionable, personalized recommendations.
5. "summary": A one-paragraph summary of the check-in.

Format as a single, valid JSON object.`, date, answersJSON, notes, recentCheckins)
}

// ReportAnalysisPrompt asks for a structured reading of OCR-extracted
// report text.
func ReportAnalysisPrompt(ocrText string) string {
	return fmt.Sprintf(`Analyze this medical report text:

OCR Text:
---
%s
---

Extract and analyze the following information. Format the output as a single, valid JSON object.
If a value is not present, use "N/A" or an empty list [].

1. "summary": A brief, one-paragraph summary of the report's main points.
2. "findings": A list of strings for key findings and abnormalities.
3. "lab_values": A list of objects, each with "test_name", "value", and "significance" (e.g., "Normal", "High", "Low").
4. "diagnoses": A list of strings for any diagnoses mentioned.
5. "medications": A list of strings for medications prescribed.
6. "urgency": An integer from 1 (Low) to 5 (Urgent) based on the findings.
7. "recommendations": A list of strings for follow-up actions.`, ocrText)
}

// ChatPrompt composes the context-aware chat prompt. history lines arrive
// oldest to newest, already formatted as "User: ...\nAssistant: ...".
func ChatPrompt(healthContext string, history []string, message string) (system, prompt string) {
	var b strings.Builder
	if healthContext != "" {
		b.WriteString("User Context (For Your Information Only - Do Not Repeat to User):\n")
		b.WriteString(healthContext)
		b.WriteString("\n\n")
	}
	if len(history) > 0 {
		b.WriteString("Conversation History (Oldest to Newest):\n")
		b.WriteString(strings.Join(history, "\n"))
		b.WriteString("\n\n")
	}
	b.WriteString("User Query:\n")
	b.WriteString(message)
	return chatSystemPrompt, b.String()
}
