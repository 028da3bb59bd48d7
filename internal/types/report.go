package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ReportKindQuiz     = "quiz"
	ReportKindRoleplay = "roleplay"
)

// Report is the immutable outcome of a finished session. Result holds the
// kind-specific payload (dimension scores and holland code for quizzes,
// ability scores and advice for roleplays). Narrative starts empty and is
// filled in by the enrichment job; everything else never changes after
// creation.
type Report struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID       uuid.UUID        `gorm:"type:uuid;uniqueIndex;not null" json:"session_id"`
	UserID          *uuid.UUID       `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Kind            string           `gorm:"not null;index;column:kind" json:"kind"`
	Result          datatypes.JSON   `gorm:"type:jsonb;not null;column:result" json:"result"`
	Narrative       string           `gorm:"column:narrative" json:"narrative,omitempty"`
	Recommendations []Recommendation `gorm:"foreignKey:ReportID;references:ID" json:"recommendations,omitempty"`
	CreatedAt       time.Time        `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"not null" json:"updated_at"`
}

func (Report) TableName() string { return "report" }

type Recommendation struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReportID   uuid.UUID `gorm:"type:uuid;not null;index:idx_recommendation_report" json:"report_id"`
	CareerID   uuid.UUID `gorm:"type:uuid;not null" json:"career_id"`
	Career     *Career   `gorm:"foreignKey:CareerID;references:ID" json:"career,omitempty"`
	Rank       int       `gorm:"not null;column:rank" json:"rank"`
	Score      float64   `gorm:"not null;column:score" json:"score"`
	Reason     string    `gorm:"column:reason" json:"reason"`
	Backfilled bool      `gorm:"not null;default:false;column:backfilled" json:"backfilled"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (Recommendation) TableName() string { return "recommendation" }
