package domain

// Question is one item of a daily check-in question set. Question sets are
// generated per user by the narrative service or substituted from a fixed
// fallback; either way the full set is serialized onto the Checkin row that
// answered it.
type Question struct {
	ID       string   `json:"id"`
	Prompt   string   `json:"question"`
	Type     string   `json:"type"`
	Options  []string `json:"options"`
	Required bool     `json:"required"`
	Category string   `json:"category,omitempty"`
}

// QuestionTypeScale is the only question type the check-in form renders.
// Generated questions of any other type are filtered out.
const QuestionTypeScale = "scale"

// Valid reports whether a generated question is renderable: non-empty id and
// prompt, type exactly "scale", and at least one option.
func (q Question) Valid() bool {
	return q.ID != "" && q.Prompt != "" && q.Type == QuestionTypeScale && len(q.Options) > 0
}
