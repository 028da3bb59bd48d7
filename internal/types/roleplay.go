package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RoleplayScript stores a validated scene graph as JSON. Content is parsed
// into a roleplay.Script on load.
type RoleplayScript struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Slug        string         `gorm:"uniqueIndex;not null;column:slug" json:"slug"`
	Title       string         `gorm:"not null;column:title" json:"title"`
	Summary     string         `gorm:"column:summary" json:"summary"`
	IsPublished bool           `gorm:"not null;default:false;column:is_published" json:"is_published"`
	Content     datatypes.JSON `gorm:"type:jsonb;not null;column:content" json:"content,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (RoleplayScript) TableName() string { return "roleplay_script" }

// RoleplaySession tracks one playthrough. State is the serialized machine
// state; Version increments on every accepted transition and is the
// compare-and-swap guard against concurrent choices on the same session.
// ActiveKey works like QuizSession's: a unique "<script_id>:<user_id>" slot
// held only while a signed-in user's session is in progress.
type RoleplaySession struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Token       string          `gorm:"uniqueIndex;not null;column:token" json:"token"`
	ScriptID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_roleplay_session_script" json:"script_id"`
	Script      *RoleplayScript `gorm:"foreignKey:ScriptID;references:ID" json:"script,omitempty"`
	UserID      *uuid.UUID      `gorm:"type:uuid;index:idx_roleplay_session_user" json:"user_id,omitempty"`
	ActiveKey   *string         `gorm:"uniqueIndex;column:active_key" json:"-"`
	Status      string          `gorm:"not null;index;column:status" json:"status"`
	Progress    float64         `gorm:"not null;default:0;column:progress" json:"progress"`
	State       datatypes.JSON  `gorm:"type:jsonb;column:state" json:"state,omitempty"`
	Version     int             `gorm:"not null;default:0;column:version" json:"version"`
	ExpiresAt   time.Time       `gorm:"not null;index" json:"expires_at"`
	CompletedAt *time.Time      `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null" json:"updated_at"`
}

func (RoleplaySession) TableName() string { return "roleplay_session" }

func (s *RoleplaySession) Expired(now time.Time) bool {
	return s.Status == SessionExpired || (s.Status == SessionInProgress && now.After(s.ExpiresAt))
}

func (s *RoleplaySession) Open(now time.Time) bool {
	return s.Status == SessionInProgress && !now.After(s.ExpiresAt)
}
