package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/cardkiosk/cardkiosk/internal/config"
	"github.com/cardkiosk/cardkiosk/internal/infra/queue"
	"github.com/cardkiosk/cardkiosk/internal/modules/model"
	"github.com/cardkiosk/cardkiosk/internal/modules/repo"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const defaultMaxAttempts = 4

type ClaimInput struct {
	ProjectID     uuid.UUID
	ClaimPassword string
	ClaimantID    string
	Username      string
}

type ClaimOutput struct {
	CardContent string `json:"card_content"`
	// AlreadyClaimed marks the idempotent path: this identity claimed before
	// and got its original card back.
	AlreadyClaimed bool `json:"already_claimed"`
}

type ProjectSummary struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	IsActive     bool      `json:"is_active"`
	TotalCards   int64     `json:"total_cards"`
	ClaimedCards int64     `json:"claimed_cards"`
}

type ClaimStatus struct {
	Claimed bool               `json:"claimed"`
	Record  *model.ClaimRecord `json:"record,omitempty"`
	Project ProjectSummary     `json:"project"`
}

type ClaimService interface {
	Claim(ctx context.Context, in ClaimInput) (*ClaimOutput, error)
	Status(ctx context.Context, projectID uuid.UUID, claimantID string) (*ClaimStatus, error)
}

type claimService struct {
	projects repo.ProjectRepo
	cards    repo.CardRepo
	claims   repo.ClaimRepo
	log      *zap.Logger
	mq       *amqp.Connection
	cfg      *config.Config
}

func NewClaimService(
	projects repo.ProjectRepo,
	cards repo.CardRepo,
	claims repo.ClaimRepo,
	log *zap.Logger,
	mq *amqp.Connection,
	cfg *config.Config,
) ClaimService {
	return &claimService{
		projects: projects,
		cards:    cards,
		claims:   claims,
		log:      log,
		mq:       mq,
		cfg:      cfg,
	}
}

// Claim runs the claim protocol end to end: validate project and password,
// short-circuit on a prior claim by this identity, then pick a card and commit
// the atomic claim unit, re-picking on card races up to the retry budget.
func (s *claimService) Claim(ctx context.Context, in ClaimInput) (*ClaimOutput, error) {
	p, err := s.projects.Get(ctx, in.ProjectID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("load project: %w", err)
	}
	if !p.IsActive {
		return nil, ErrProjectInactive
	}
	if subtle.ConstantTimeCompare([]byte(p.ClaimPassword), []byte(in.ClaimPassword)) != 1 {
		return nil, ErrBadPassword
	}

	// A repeat attempt by the same identity is not an error: it gets the
	// original card back.
	if p.OneClaimPerIdentity {
		rec, err := s.claims.Find(ctx, p.ID, in.ClaimantID)
		if err != nil {
			return nil, fmt.Errorf("duplicate lookup: %w", err)
		}
		if rec != nil {
			return &ClaimOutput{CardContent: rec.CardContent, AlreadyClaimed: true}, nil
		}
	}

	attempts := s.cfg.Claim.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	for i := 0; i < attempts; i++ {
		card, err := s.cards.PickUnclaimed(ctx, p.ID)
		if errors.Is(err, repo.ErrNoCardAvailable) {
			return nil, ErrPoolExhausted
		}
		if err != nil {
			return nil, fmt.Errorf("pick card: %w", err)
		}

		dedupe := in.ClaimantID
		if !p.OneClaimPerIdentity {
			dedupe = uuid.NewString()
		}

		rec, err := s.claims.CommitClaim(ctx, repo.CommitClaimInput{
			Card:       card,
			ClaimantID: in.ClaimantID,
			Username:   in.Username,
			DedupeKey:  dedupe,
			Now:        time.Now().UTC(),
		})
		switch {
		case err == nil:
			s.publishClaimEvent(ctx, p, rec)
			return &ClaimOutput{CardContent: rec.CardContent}, nil

		case errors.Is(err, repo.ErrCardClaimed):
			// Another request won this specific card between pick and commit.
			// The pool only shrinks, so re-picking converges or exhausts.
			continue

		case errors.Is(err, repo.ErrDuplicateClaim):
			// A concurrent request from the same identity committed first. The
			// transaction rollback already released our picked card, so hand
			// back the winner's card instead of losing one.
			winner, ferr := s.claims.Find(ctx, p.ID, in.ClaimantID)
			if ferr != nil {
				return nil, fmt.Errorf("winner lookup: %w", ferr)
			}
			if winner == nil {
				return nil, err
			}
			return &ClaimOutput{CardContent: winner.CardContent, AlreadyClaimed: true}, nil

		default:
			return nil, fmt.Errorf("commit claim: %w", err)
		}
	}

	return nil, ErrRaceLost
}

// Status answers "has this identity claimed" without side effects.
func (s *claimService) Status(ctx context.Context, projectID uuid.UUID, claimantID string) (*ClaimStatus, error) {
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("load project: %w", err)
	}

	rec, err := s.claims.Find(ctx, projectID, claimantID)
	if err != nil {
		return nil, fmt.Errorf("claim lookup: %w", err)
	}

	return &ClaimStatus{
		Claimed: rec != nil,
		Record:  rec,
		Project: summarize(p),
	}, nil
}

type claimEvent struct {
	ProjectID   uuid.UUID `json:"project_id"`
	ProjectName string    `json:"project_name"`
	ClaimantID  string    `json:"claimant_id"`
	Username    string    `json:"username,omitempty"`
	ClaimedAt   time.Time `json:"claimed_at"`
}

// publishClaimEvent fans a committed claim out to the event exchange. Best
// effort: the claim already committed, a broker hiccup must not fail it.
func (s *claimService) publishClaimEvent(ctx context.Context, p *model.Project, rec *model.ClaimRecord) {
	if s.mq == nil {
		return
	}

	pub, err := queue.NewPublisher(s.mq, s.cfg.RabbitMQ.Exchange, s.log)
	if err != nil {
		s.log.Sugar().Warnw("create claim event publisher", "err", err)
		return
	}
	defer pub.Close()

	ev := claimEvent{
		ProjectID:   p.ID,
		ProjectName: p.Name,
		ClaimantID:  rec.ClaimantID,
		Username:    rec.Username,
		ClaimedAt:   rec.ClaimedAt,
	}
	if err := pub.PublishJSON(ctx, s.cfg.RabbitMQ.ClaimRoutingKey, ev); err != nil {
		s.log.Sugar().Warnw("publish claim event", "err", err, "project_id", p.ID)
	}
}

func summarize(p *model.Project) ProjectSummary {
	return ProjectSummary{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		IsActive:     p.IsActive,
		TotalCards:   p.TotalCards,
		ClaimedCards: p.ClaimedCards,
	}
}
