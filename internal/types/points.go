package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	PointReasonQuizCompleted     = "quiz_completed"
	PointReasonRoleplayCompleted = "roleplay_completed"
)

// UserPoints is the running balance; PointTransaction is the append-only
// ledger behind it. SourceID dedupes awards per finished session.
type UserPoints struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Balance   int       `gorm:"not null;default:0;column:balance" json:"balance"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (UserPoints) TableName() string { return "user_points" }

type PointTransaction struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_point_tx_user" json:"user_id"`
	Amount    int       `gorm:"not null;column:amount" json:"amount"`
	Reason    string    `gorm:"not null;column:reason" json:"reason"`
	SourceID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_point_tx_source" json:"source_id"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (PointTransaction) TableName() string { return "point_transaction" }
