// Package domain defines the persistence models for users, daily check-ins,
// report uploads, chat turns, and preferences. These types are mapped with
// GORM and form the core data layer of the health backend.
package domain

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// User is an account created through signup. Passwords are stored as bcrypt
// hashes only.
type User struct {
	ID           string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Email        string         `json:"email"      gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string         `json:"-"          gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Checkin is one calendar-day submission of a question set with chosen
// severity answers. At most one row exists per user per local calendar day;
// the guard is enforced by the service querying the most recent row, not by
// a unique constraint a client could observe.
//
// Answers, Questions and Analysis are stored as JSON text so the row survives
// question-set evolution: the exact questions the user answered travel with
// the record, tagged by QuestionVersion.
type Checkin struct {
	ID              string         `json:"id"               gorm:"type:char(36);primaryKey"`
	UserID          string         `json:"user_id"          gorm:"type:varchar(64);not null;index:idx_user_checkins,priority:1"`
	Date            time.Time      `json:"date"             gorm:"not null;index:idx_user_checkins,priority:2"`
	Answers         string         `json:"-"                gorm:"type:text;not null"`
	Notes           string         `json:"notes"            gorm:"type:text"`
	Questions       string         `json:"-"                gorm:"type:text"`
	QuestionVersion string         `json:"question_version" gorm:"type:varchar(32)"`
	Analysis        *string        `json:"-"                gorm:"column:llm_analysis;type:text"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-"                gorm:"index"`
}

// TableName returns the database table name for Checkin.
func (Checkin) TableName() string { return "daily_checkins" }

// AnswerMap decodes the stored answers JSON. A decode failure yields an
// empty map rather than an error; callers treat such rows as unanswered.
func (c *Checkin) AnswerMap() map[string]string {
	out := map[string]string{}
	if c.Answers != "" {
		_ = json.Unmarshal([]byte(c.Answers), &out)
	}
	return out
}

// ChatTurn is one exchanged user/assistant pair in a user's conversation.
// Turns are immutable once created and ordered by insertion.
type ChatTurn struct {
	ID         string         `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID     string         `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_user_turns,priority:1"`
	Message    string         `json:"message"    gorm:"type:text;not null"`
	Response   string         `json:"response"   gorm:"type:text;not null"`
	Context    string         `json:"-"          gorm:"type:text"`
	Confidence *float64       `json:"confidence,omitempty"`
	CreatedAt  time.Time      `json:"created_at" gorm:"index:idx_user_turns,priority:2"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for ChatTurn.
func (ChatTurn) TableName() string { return "chat_sessions" }

// Upload records one accepted report file. Analysis rows reference it.
type Upload struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;index"`
	Filename  string         `json:"filename"   gorm:"type:varchar(255);not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Upload.
func (Upload) TableName() string { return "uploads" }

// ReportAnalysis stores the OCR text and narrative analysis produced for an
// uploaded report. Findings is a JSON array of strings; Urgency is the 1-5
// severity attached by the narrative service.
type ReportAnalysis struct {
	ID        string         `json:"id"        gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"   gorm:"type:varchar(64);not null;index"`
	UploadID  string         `json:"upload_id" gorm:"type:char(36);not null;index"`
	OCRText   string         `json:"-"         gorm:"column:ocr_text;type:text"`
	Analysis  string         `json:"-"         gorm:"column:llm_analysis;type:text"`
	Findings  string         `json:"-"         gorm:"type:text"`
	Urgency   int            `json:"urgency"   gorm:"not null;default:3"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"         gorm:"index"`

	// Upload is the source file record. Analyses are cascade-deleted
	// if the upload row is removed.
	Upload Upload `json:"-" gorm:"foreignKey:UploadID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ReportAnalysis.
func (ReportAnalysis) TableName() string { return "report_analyses" }

// Feedback is free-text product feedback left by a user.
type Feedback struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;index"`
	Feedback  string         `json:"feedback"   gorm:"type:text;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Feedback.
func (Feedback) TableName() string { return "feedback" }

// Preference is one keyed setting value. Keys follow the
// "<feature>:<identity>:<field>" convention. The table carries a documented
// last-writer-wins contract: concurrent writers for the same identity (for
// example two open clients) simply overwrite each other, and UpdatedAt is the
// only version stamp.
type Preference struct {
	Key       string    `json:"key"   gorm:"type:varchar(255);primaryKey"`
	Value     string    `json:"value" gorm:"type:text;not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Preference.
func (Preference) TableName() string { return "preferences" }
