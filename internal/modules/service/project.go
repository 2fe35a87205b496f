package service

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/cardkiosk/cardkiosk/internal/config"
	"github.com/cardkiosk/cardkiosk/internal/infra/blob"
	"github.com/cardkiosk/cardkiosk/internal/modules/model"
	"github.com/cardkiosk/cardkiosk/internal/modules/repo"
	"github.com/cardkiosk/cardkiosk/internal/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const generatedPasswordLen = 16

type CreateProjectInput struct {
	Name                string
	Description         string
	ClaimPassword       string
	AdminPassword       string
	OneClaimPerIdentity bool
	Cards               []string
	Settings            map[string]interface{}
}

type UpdateProjectInput struct {
	Name                *string
	Description         *string
	ClaimPassword       *string
	AdminPassword       *string
	IsActive            *bool
	OneClaimPerIdentity *bool
	Settings            map[string]interface{}
}

type ProjectService interface {
	Create(ctx context.Context, in CreateProjectInput) (*model.Project, error)
	Get(ctx context.Context, projectID uuid.UUID, adminPassword string) (*model.Project, error)
	Update(ctx context.Context, projectID uuid.UUID, adminPassword string, in UpdateProjectInput) (*model.Project, error)
	Delete(ctx context.Context, projectID uuid.UUID, adminPassword string) error
	AddCards(ctx context.Context, projectID uuid.UUID, adminPassword string, contents []string) (int64, error)
	RemoveCard(ctx context.Context, projectID uuid.UUID, adminPassword string, cardID uuid.UUID) error
	ListCards(ctx context.Context, projectID uuid.UUID, adminPassword string) ([]model.Card, error)
	RecentClaims(ctx context.Context, projectID uuid.UUID, adminPassword string, limit int) ([]model.ClaimRecord, error)
	ExportLedger(ctx context.Context, projectID uuid.UUID, adminPassword string) (string, error)
}

type projectService struct {
	projects repo.ProjectRepo
	cards    repo.CardRepo
	claims   repo.ClaimRepo
	blob     *blob.S3Deps
	cfg      *config.Config
}

func NewProjectService(
	projects repo.ProjectRepo,
	cards repo.CardRepo,
	claims repo.ClaimRepo,
	blob *blob.S3Deps,
	cfg *config.Config,
) ProjectService {
	return &projectService{
		projects: projects,
		cards:    cards,
		claims:   claims,
		blob:     blob,
		cfg:      cfg,
	}
}

func (s *projectService) Create(ctx context.Context, in CreateProjectInput) (*model.Project, error) {
	claimPwd := in.ClaimPassword
	if claimPwd == "" {
		var err error
		if claimPwd, err = utils.GenerateKey("", generatedPasswordLen); err != nil {
			return nil, fmt.Errorf("generate claim password: %w", err)
		}
	}
	adminPwd := in.AdminPassword
	if adminPwd == "" {
		var err error
		if adminPwd, err = utils.GenerateKey("", generatedPasswordLen); err != nil {
			return nil, fmt.Errorf("generate admin password: %w", err)
		}
	}

	p := &model.Project{
		Name:                in.Name,
		Description:         in.Description,
		ClaimPassword:       claimPwd,
		AdminPassword:       adminPwd,
		IsActive:            true,
		OneClaimPerIdentity: in.OneClaimPerIdentity,
		Settings:            datatypes.JSONMap(in.Settings),
	}
	if err := s.projects.Create(ctx, p, in.Cards); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

func (s *projectService) Get(ctx context.Context, projectID uuid.UUID, adminPassword string) (*model.Project, error) {
	return s.authorize(ctx, projectID, adminPassword)
}

func (s *projectService) Update(ctx context.Context, projectID uuid.UUID, adminPassword string, in UpdateProjectInput) (*model.Project, error) {
	if _, err := s.authorize(ctx, projectID, adminPassword); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.ClaimPassword != nil {
		fields["claim_password"] = *in.ClaimPassword
	}
	if in.AdminPassword != nil {
		fields["admin_password"] = *in.AdminPassword
	}
	if in.IsActive != nil {
		fields["is_active"] = *in.IsActive
	}
	if in.OneClaimPerIdentity != nil {
		fields["one_claim_per_identity"] = *in.OneClaimPerIdentity
	}
	if in.Settings != nil {
		fields["settings"] = datatypes.JSONMap(in.Settings)
	}

	if err := s.projects.Update(ctx, projectID, fields); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return s.projects.Get(ctx, projectID)
}

func (s *projectService) Delete(ctx context.Context, projectID uuid.UUID, adminPassword string) error {
	if _, err := s.authorize(ctx, projectID, adminPassword); err != nil {
		return err
	}
	return s.projects.Delete(ctx, projectID)
}

func (s *projectService) AddCards(ctx context.Context, projectID uuid.UUID, adminPassword string, contents []string) (int64, error) {
	if _, err := s.authorize(ctx, projectID, adminPassword); err != nil {
		return 0, err
	}
	return s.cards.AddCards(ctx, projectID, contents)
}

func (s *projectService) RemoveCard(ctx context.Context, projectID uuid.UUID, adminPassword string, cardID uuid.UUID) error {
	if _, err := s.authorize(ctx, projectID, adminPassword); err != nil {
		return err
	}
	deleted, err := s.cards.Delete(ctx, projectID, cardID)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	if !deleted {
		return ErrCardLocked
	}
	return nil
}

func (s *projectService) ListCards(ctx context.Context, projectID uuid.UUID, adminPassword string) ([]model.Card, error) {
	if _, err := s.authorize(ctx, projectID, adminPassword); err != nil {
		return nil, err
	}
	return s.cards.ListByProject(ctx, projectID)
}

func (s *projectService) RecentClaims(ctx context.Context, projectID uuid.UUID, adminPassword string, limit int) ([]model.ClaimRecord, error) {
	if _, err := s.authorize(ctx, projectID, adminPassword); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.claims.ListRecent(ctx, projectID, limit)
}

// ExportLedger renders the full claim ledger as CSV, uploads it to the blob
// store and returns a presigned download URL.
func (s *projectService) ExportLedger(ctx context.Context, projectID uuid.UUID, adminPassword string) (string, error) {
	p, err := s.authorize(ctx, projectID, adminPassword)
	if err != nil {
		return "", err
	}
	if s.blob == nil {
		return "", fmt.Errorf("ledger export is not configured")
	}

	recs, err := s.claims.ListAll(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("load ledger: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"claimed_at", "claimant_id", "username", "card_content"})
	for _, rec := range recs {
		_ = w.Write([]string{
			rec.ClaimedAt.UTC().Format(time.RFC3339),
			rec.ClaimantID,
			rec.Username,
			rec.CardContent,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("render csv: %w", err)
	}

	key := fmt.Sprintf("ledger/%s/%d.csv", p.ID, time.Now().UTC().Unix())
	if err := s.blob.UploadBytes(ctx, key, "text/csv", buf.Bytes()); err != nil {
		return "", fmt.Errorf("upload ledger: %w", err)
	}

	expire := time.Duration(s.cfg.S3.PresignExpireSec) * time.Second
	if expire <= 0 {
		expire = 15 * time.Minute
	}
	return s.blob.PresignGet(ctx, key, expire)
}

// authorize loads the project and checks the admin password. Every management
// operation funnels through here.
func (s *projectService) authorize(ctx context.Context, projectID uuid.UUID, adminPassword string) (*model.Project, error) {
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("load project: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(p.AdminPassword), []byte(adminPassword)) != 1 {
		return nil, ErrBadPassword
	}
	return p, nil
}
