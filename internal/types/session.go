package types

import (
	"time"

	"github.com/google/uuid"
)

// Session lifecycle. A session only moves forward: in_progress -> submitted
// -> completed, or in_progress -> expired once its deadline passes.
const (
	SessionInProgress = "in_progress"
	SessionSubmitted  = "submitted"
	SessionCompleted  = "completed"
	SessionExpired    = "expired"
)

// QuizSession's ActiveKey holds "<quiz_id>:<user_id>" while a signed-in
// user's session is in progress and is NULL otherwise. The unique index on it
// makes "one live session per user per quiz" a database invariant instead of
// a read-then-create race; anonymous sessions never hold a key.
type QuizSession struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Token       string     `gorm:"uniqueIndex;not null;column:token" json:"token"`
	QuizID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_quiz_session_quiz" json:"quiz_id"`
	Quiz        *Quiz      `gorm:"foreignKey:QuizID;references:ID" json:"quiz,omitempty"`
	UserID      *uuid.UUID `gorm:"type:uuid;index:idx_quiz_session_user" json:"user_id,omitempty"`
	ActiveKey   *string    `gorm:"uniqueIndex;column:active_key" json:"-"`
	Status      string     `gorm:"not null;index;column:status" json:"status"`
	ExpiresAt   time.Time  `gorm:"not null;index" json:"expires_at"`
	SubmittedAt *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (QuizSession) TableName() string { return "quiz_session" }

// Expired reports whether the session's deadline has passed relative to now.
// Stored status may lag behind; expiry is applied lazily on access.
func (s *QuizSession) Expired(now time.Time) bool {
	return s.Status == SessionExpired || (s.Status == SessionInProgress && now.After(s.ExpiresAt))
}

// Open reports whether the session still accepts answers.
func (s *QuizSession) Open(now time.Time) bool {
	return s.Status == SessionInProgress && !now.After(s.ExpiresAt)
}
