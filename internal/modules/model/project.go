package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Project struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string    `gorm:"type:varchar(128);not null" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	ClaimPassword string    `gorm:"type:varchar(128);not null" json:"-"`
	AdminPassword string    `gorm:"type:varchar(128);not null" json:"-"`

	IsActive            bool `gorm:"not null;default:true" json:"is_active"`
	OneClaimPerIdentity bool `gorm:"not null;default:true" json:"one_claim_per_identity"`

	// Counters are maintained inside the same transaction as the writes that
	// change them; claimed_cards never exceeds total_cards.
	TotalCards   int64 `gorm:"not null;default:0" json:"total_cards"`
	ClaimedCards int64 `gorm:"not null;default:0" json:"claimed_cards"`

	Settings datatypes.JSONMap `gorm:"type:jsonb" swaggertype:"object" json:"settings"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Project <-> Card
	Cards []Card `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"cards,omitempty"`

	// Project <-> ClaimRecord
	ClaimRecords []ClaimRecord `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"claim_records,omitempty"`
}

func (Project) TableName() string { return "projects" }
