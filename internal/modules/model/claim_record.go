package model

import (
	"time"

	"github.com/google/uuid"
)

// ClaimRecord is the immutable ledger entry for one successful claim. The card
// content is denormalized so the audit trail survives card deletion.
//
// DedupeKey carries the one-claim-per-identity uniqueness: for projects that
// enforce it, DedupeKey equals ClaimantID and the (project_id, dedupe_key)
// unique index rejects a second claim at insert time; for projects that do not,
// DedupeKey is a fresh random value per claim.
type ClaimRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_claim_records_project_dedupe,priority:1;index:idx_claim_records_project_claimant,priority:1" json:"project_id"`
	CardContent string    `gorm:"type:text;not null" json:"card_content"`

	ClaimantID string `gorm:"type:varchar(128);not null;index:idx_claim_records_project_claimant,priority:2" json:"claimant_id"`
	Username   string `gorm:"type:varchar(128)" json:"username,omitempty"`
	DedupeKey  string `gorm:"type:varchar(128);not null;uniqueIndex:uniq_claim_records_project_dedupe,priority:2" json:"-"`

	ClaimedAt time.Time `gorm:"autoCreateTime;index" json:"claimed_at"`

	// ClaimRecord <-> Project
	Project *Project `gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"project,omitempty"`
}

func (ClaimRecord) TableName() string { return "claim_records" }
