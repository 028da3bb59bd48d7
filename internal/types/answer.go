package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// QuizAnswer is the latest answer a session holds for a question. Re-answering
// the same question replaces the previous row; the unique index on
// (session_id, question_id) is the upsert conflict target.
type QuizAnswer struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uq_answer_session_question,priority:1" json:"session_id"`
	QuestionID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uq_answer_session_question,priority:2" json:"question_id"`
	OptionID     *uuid.UUID     `gorm:"type:uuid;column:option_id" json:"option_id,omitempty"`
	OptionIDs    datatypes.JSON `gorm:"type:jsonb;column:option_ids" json:"option_ids,omitempty"`
	RatingValue  *float64       `gorm:"column:rating_value" json:"rating_value,omitempty"`
	Distribution datatypes.JSON `gorm:"type:jsonb;column:distribution" json:"distribution,omitempty"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
}

func (QuizAnswer) TableName() string { return "quiz_answer" }
