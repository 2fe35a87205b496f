package model

import (
	"time"

	"github.com/google/uuid"
)

// Card is one redeemable secret unit belonging to a project. Once claimed its
// content and claimant never change, and it is never handed out again.
type Card struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index:idx_cards_project_claimed,priority:1" json:"project_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`

	Claimed   bool       `gorm:"not null;default:false;index:idx_cards_project_claimed,priority:2" json:"claimed"`
	ClaimedBy *string    `gorm:"type:varchar(128)" json:"claimed_by,omitempty"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Card <-> Project
	Project *Project `gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"project,omitempty"`
}

func (Card) TableName() string { return "cards" }
