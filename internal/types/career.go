package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Career is a catalog entry with a trait vector used for matching.
// Dimensions is a JSON object of dimension code to weight.
type Career struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string         `gorm:"uniqueIndex;not null;column:name" json:"name"`
	Description string         `gorm:"column:description" json:"description"`
	Galaxy      string         `gorm:"index;column:galaxy" json:"galaxy"`
	Dimensions  datatypes.JSON `gorm:"type:jsonb;not null;column:dimensions" json:"dimensions"`
	Popularity  int            `gorm:"not null;default:0;column:popularity" json:"popularity"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (Career) TableName() string { return "career" }
