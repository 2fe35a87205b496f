package repo

import (
	"context"
	"errors"
	"time"

	"github.com/cardkiosk/cardkiosk/internal/modules/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CommitClaimInput struct {
	Card       *model.Card
	ClaimantID string
	Username   string
	DedupeKey  string
	Now        time.Time
}

type ClaimRepo interface {
	CommitClaim(ctx context.Context, in CommitClaimInput) (*model.ClaimRecord, error)
	Find(ctx context.Context, projectID uuid.UUID, claimantID string) (*model.ClaimRecord, error)
	ListRecent(ctx context.Context, projectID uuid.UUID, limit int) ([]model.ClaimRecord, error)
	ListAll(ctx context.Context, projectID uuid.UUID) ([]model.ClaimRecord, error)
}

type claimRepo struct{ db *gorm.DB }

func NewClaimRepo(db *gorm.DB) ClaimRepo {
	return &claimRepo{db: db}
}

// CommitClaim performs the tri-part atomic claim unit: flip the card to
// claimed with a conditional update, insert the ledger entry, and bump the
// project's claimed counter. All three commit or none do.
//
// The storage layer arbitrates both races: a card-level race surfaces as zero
// rows affected on the conditional update (ErrCardClaimed), and an identity
// race surfaces as a unique violation on the ledger insert (ErrDuplicateClaim).
// Either way the rollback releases the picked card back to the pool.
func (r *claimRepo) CommitClaim(ctx context.Context, in CommitClaimInput) (*model.ClaimRecord, error) {
	rec := &model.ClaimRecord{
		ProjectID:   in.Card.ProjectID,
		CardContent: in.Card.Content,
		ClaimantID:  in.ClaimantID,
		Username:    in.Username,
		DedupeKey:   in.DedupeKey,
		ClaimedAt:   in.Now,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Card{}).
			Where("id = ? AND claimed = ?", in.Card.ID, false).
			Updates(map[string]interface{}{
				"claimed":    true,
				"claimed_by": in.ClaimantID,
				"claimed_at": in.Now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCardClaimed
		}

		if err := tx.Create(rec).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateClaim
			}
			return err
		}

		return tx.Model(&model.Project{}).
			Where("id = ?", in.Card.ProjectID).
			Updates(map[string]interface{}{
				"claimed_cards": gorm.Expr("claimed_cards + 1"),
				"updated_at":    in.Now,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Find returns the ledger entry for (project, claimant), or nil when none
// exists. Used both for the fast-path duplicate check and status queries.
func (r *claimRepo) Find(ctx context.Context, projectID uuid.UUID, claimantID string) (*model.ClaimRecord, error) {
	var rec model.ClaimRecord
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND claimant_id = ?", projectID, claimantID).
		Order("claimed_at ASC").
		Limit(1).
		Find(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		return nil, nil
	}
	return &rec, nil
}

func (r *claimRepo) ListRecent(ctx context.Context, projectID uuid.UUID, limit int) ([]model.ClaimRecord, error) {
	var recs []model.ClaimRecord
	return recs, r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("claimed_at DESC, id DESC").
		Limit(limit).
		Find(&recs).Error
}

func (r *claimRepo) ListAll(ctx context.Context, projectID uuid.UUID) ([]model.ClaimRecord, error) {
	var recs []model.ClaimRecord
	return recs, r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("claimed_at ASC, id ASC").
		Find(&recs).Error
}
