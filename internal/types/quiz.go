package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Quiz struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Slug        string         `gorm:"uniqueIndex;not null;column:slug" json:"slug"`
	Title       string         `gorm:"not null;column:title" json:"title"`
	Description string         `gorm:"column:description" json:"description"`
	IsPublished bool           `gorm:"not null;default:false;column:is_published" json:"is_published"`
	Scoring     datatypes.JSON `gorm:"type:jsonb;column:scoring" json:"scoring,omitempty"`
	Questions   []Question     `gorm:"foreignKey:QuizID;references:ID" json:"questions,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (Quiz) TableName() string { return "quiz" }

// Question declares its type, its position inside the quiz and, for rating
// and distribution types, the scored dimension(s) and weight. Settings holds
// type-specific extras (max_select, scale bounds, dimension list).
type Question struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	QuizID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_question_quiz" json:"quiz_id"`
	Position  int            `gorm:"not null;column:position" json:"position"`
	Type      string         `gorm:"not null;column:type" json:"type"`
	Title     string         `gorm:"column:title" json:"title"`
	Content   string         `gorm:"not null;column:content" json:"content"`
	Dimension string         `gorm:"column:dimension" json:"dimension,omitempty"`
	Weight    float64        `gorm:"not null;default:0;column:weight" json:"weight"`
	Settings  datatypes.JSON `gorm:"type:jsonb;column:settings" json:"settings,omitempty"`
	Options   []Option       `gorm:"foreignKey:QuestionID;references:ID" json:"options,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (Question) TableName() string { return "question" }

type Option struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	QuestionID uuid.UUID `gorm:"type:uuid;not null;index:idx_option_question" json:"question_id"`
	Position   int       `gorm:"not null;column:position" json:"position"`
	Content    string    `gorm:"not null;column:content" json:"content"`
	Dimension  string    `gorm:"not null;column:dimension" json:"dimension"`
	Weight     float64   `gorm:"not null;default:0;column:weight" json:"weight"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (Option) TableName() string { return "option" }

// QuestionSettings is the decoded shape of Question.Settings.
type QuestionSettings struct {
	MaxSelect  int      `json:"max_select,omitempty"`
	MaxRating  float64  `json:"max_rating,omitempty"`
	Dimensions []string `json:"dimensions,omitempty"`
}
