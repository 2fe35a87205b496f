package repo

import (
	"context"
	"errors"

	"github.com/cardkiosk/cardkiosk/internal/modules/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CardRepo interface {
	AddCards(ctx context.Context, projectID uuid.UUID, contents []string) (int64, error)
	PickUnclaimed(ctx context.Context, projectID uuid.UUID) (*model.Card, error)
	Get(ctx context.Context, projectID uuid.UUID, cardID uuid.UUID) (*model.Card, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.Card, error)
	Delete(ctx context.Context, projectID uuid.UUID, cardID uuid.UUID) (bool, error)
}

type cardRepo struct{ db *gorm.DB }

func NewCardRepo(db *gorm.DB) CardRepo {
	return &cardRepo{db: db}
}

// AddCards bulk-inserts cards and bumps the project's total counter in the
// same transaction so the aggregate never drifts from the pool.
func (r *cardRepo) AddCards(ctx context.Context, projectID uuid.UUID, contents []string) (int64, error) {
	if len(contents) == 0 {
		return 0, nil
	}

	cards := make([]model.Card, 0, len(contents))
	for _, content := range contents {
		cards = append(cards, model.Card{ProjectID: projectID, Content: content})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&cards).Error; err != nil {
			return err
		}
		return tx.Model(&model.Project{}).
			Where("id = ?", projectID).
			UpdateColumn("total_cards", gorm.Expr("total_cards + ?", len(cards))).Error
	})
	if err != nil {
		return 0, err
	}
	return int64(len(cards)), nil
}

// PickUnclaimed selects one unclaimed card of the project approximately
// uniformly at random. The selection is not serialized against concurrent
// claims; the conditional update in CommitClaim is what decides races.
func (r *cardRepo) PickUnclaimed(ctx context.Context, projectID uuid.UUID) (*model.Card, error) {
	var card model.Card
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND claimed = ?", projectID, false).
		Order("random()").
		Limit(1).
		Take(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoCardAvailable
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *cardRepo) Get(ctx context.Context, projectID uuid.UUID, cardID uuid.UUID) (*model.Card, error) {
	var card model.Card
	return &card, r.db.WithContext(ctx).
		Where("id = ? AND project_id = ?", cardID, projectID).
		First(&card).Error
}

func (r *cardRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.Card, error) {
	var cards []model.Card
	return cards, r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC, id ASC").
		Find(&cards).Error
}

// Delete removes a card only while it is still unclaimed; claimed cards are
// immutable. Returns false when nothing was deleted.
func (r *cardRepo) Delete(ctx context.Context, projectID uuid.UUID, cardID uuid.UUID) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND project_id = ? AND claimed = ?", cardID, projectID, false).
			Delete(&model.Card{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return tx.Model(&model.Project{}).
			Where("id = ?", projectID).
			UpdateColumn("total_cards", gorm.Expr("total_cards - 1")).Error
	})
	return deleted, err
}
