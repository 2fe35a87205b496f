package repo

import (
	"context"
	"time"

	"github.com/cardkiosk/cardkiosk/internal/modules/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectRepo interface {
	Create(ctx context.Context, p *model.Project, contents []string) error
	Get(ctx context.Context, id uuid.UUID) (*model.Project, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type projectRepo struct{ db *gorm.DB }

func NewProjectRepo(db *gorm.DB) ProjectRepo {
	return &projectRepo{db: db}
}

// Create persists the project together with its initial card batch, so a new
// project is born with consistent counters.
func (r *projectRepo) Create(ctx context.Context, p *model.Project, contents []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p.TotalCards = int64(len(contents))
		p.ClaimedCards = 0
		if err := tx.Create(p).Error; err != nil {
			return err
		}

		if len(contents) == 0 {
			return nil
		}
		cards := make([]model.Card, 0, len(contents))
		for _, content := range contents {
			cards = append(cards, model.Card{ProjectID: p.ID, Content: content})
		}
		return tx.Create(&cards).Error
	})
}

func (r *projectRepo) Get(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var p model.Project
	return &p, r.db.WithContext(ctx).Where(&model.Project{ID: id}).First(&p).Error
}

// Update applies a partial field merge and bumps updated_at.
func (r *projectRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now()
	return r.db.WithContext(ctx).Model(&model.Project{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// Delete removes the project; cards and ledger entries go with it via the
// cascade constraints.
func (r *projectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Project{ID: id}).Error
}
