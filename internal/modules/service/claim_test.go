package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cardkiosk/cardkiosk/internal/config"
	"github.com/cardkiosk/cardkiosk/internal/modules/model"
	"github.com/cardkiosk/cardkiosk/internal/modules/repo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MockProjectRepo is a mock implementation of repo.ProjectRepo
type MockProjectRepo struct {
	mock.Mock
}

func (m *MockProjectRepo) Create(ctx context.Context, p *model.Project, contents []string) error {
	args := m.Called(ctx, p, contents)
	return args.Error(0)
}

func (m *MockProjectRepo) Get(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockProjectRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockCardRepo is a mock implementation of repo.CardRepo
type MockCardRepo struct {
	mock.Mock
}

func (m *MockCardRepo) AddCards(ctx context.Context, projectID uuid.UUID, contents []string) (int64, error) {
	args := m.Called(ctx, projectID, contents)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCardRepo) PickUnclaimed(ctx context.Context, projectID uuid.UUID) (*model.Card, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Card), args.Error(1)
}

func (m *MockCardRepo) Get(ctx context.Context, projectID uuid.UUID, cardID uuid.UUID) (*model.Card, error) {
	args := m.Called(ctx, projectID, cardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Card), args.Error(1)
}

func (m *MockCardRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.Card, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Card), args.Error(1)
}

func (m *MockCardRepo) Delete(ctx context.Context, projectID uuid.UUID, cardID uuid.UUID) (bool, error) {
	args := m.Called(ctx, projectID, cardID)
	return args.Bool(0), args.Error(1)
}

// MockClaimRepo is a mock implementation of repo.ClaimRepo
type MockClaimRepo struct {
	mock.Mock
}

func (m *MockClaimRepo) CommitClaim(ctx context.Context, in repo.CommitClaimInput) (*model.ClaimRecord, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ClaimRecord), args.Error(1)
}

func (m *MockClaimRepo) Find(ctx context.Context, projectID uuid.UUID, claimantID string) (*model.ClaimRecord, error) {
	args := m.Called(ctx, projectID, claimantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ClaimRecord), args.Error(1)
}

func (m *MockClaimRepo) ListRecent(ctx context.Context, projectID uuid.UUID, limit int) ([]model.ClaimRecord, error) {
	args := m.Called(ctx, projectID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ClaimRecord), args.Error(1)
}

func (m *MockClaimRepo) ListAll(ctx context.Context, projectID uuid.UUID) ([]model.ClaimRecord, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ClaimRecord), args.Error(1)
}

func testConfig() *config.Config {
	return &config.Config{
		Claim: config.ClaimCfg{MaxAttempts: 3},
	}
}

func newTestClaimService(projects *MockProjectRepo, cards *MockCardRepo, claims *MockClaimRepo) ClaimService {
	return NewClaimService(projects, cards, claims, zap.NewNop(), nil, testConfig())
}

func createTestProject(active bool, oneClaim bool) *model.Project {
	return &model.Project{
		ID:                  uuid.New(),
		Name:                "launch giveaway",
		ClaimPassword:       "open-sesame",
		AdminPassword:       "root-sesame",
		IsActive:            active,
		OneClaimPerIdentity: oneClaim,
		TotalCards:          10,
		ClaimedCards:        3,
		CreatedAt:           time.Now(),
		UpdatedAt:           time.Now(),
	}
}

func createTestCard(projectID uuid.UUID, content string) *model.Card {
	return &model.Card{
		ID:        uuid.New(),
		ProjectID: projectID,
		Content:   content,
	}
}

func TestClaimService_Claim_Validation(t *testing.T) {
	project := createTestProject(true, false)

	tests := []struct {
		name    string
		input   ClaimInput
		setup   func(*MockProjectRepo)
		wantErr error
	}{
		{
			name:  "project not found",
			input: ClaimInput{ProjectID: project.ID, ClaimPassword: "open-sesame", ClaimantID: "c1"},
			setup: func(projects *MockProjectRepo) {
				projects.On("Get", mock.Anything, project.ID).Return(nil, gorm.ErrRecordNotFound)
			},
			wantErr: ErrProjectNotFound,
		},
		{
			name:  "project inactive",
			input: ClaimInput{ProjectID: project.ID, ClaimPassword: "open-sesame", ClaimantID: "c1"},
			setup: func(projects *MockProjectRepo) {
				inactive := createTestProject(false, false)
				inactive.ID = project.ID
				projects.On("Get", mock.Anything, project.ID).Return(inactive, nil)
			},
			wantErr: ErrProjectInactive,
		},
		{
			name:  "wrong claim password",
			input: ClaimInput{ProjectID: project.ID, ClaimPassword: "guess", ClaimantID: "c1"},
			setup: func(projects *MockProjectRepo) {
				projects.On("Get", mock.Anything, project.ID).Return(project, nil)
			},
			wantErr: ErrBadPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			projects := &MockProjectRepo{}
			cards := &MockCardRepo{}
			claims := &MockClaimRepo{}
			tt.setup(projects)

			svc := newTestClaimService(projects, cards, claims)

			out, err := svc.Claim(context.Background(), tt.input)

			assert.Nil(t, out)
			assert.ErrorIs(t, err, tt.wantErr)
			projects.AssertExpectations(t)
			cards.AssertNotCalled(t, "PickUnclaimed", mock.Anything, mock.Anything)
			claims.AssertNotCalled(t, "CommitClaim", mock.Anything, mock.Anything)
		})
	}
}

func TestClaimService_Claim_Success(t *testing.T) {
	project := createTestProject(true, true)
	card := createTestCard(project.ID, "GIFT-0001")

	projects := &MockProjectRepo{}
	cards := &MockCardRepo{}
	claims := &MockClaimRepo{}

	projects.On("Get", mock.Anything, project.ID).Return(project, nil)
	claims.On("Find", mock.Anything, project.ID, "claimant-a").Return(nil, nil).Once()
	cards.On("PickUnclaimed", mock.Anything, project.ID).Return(card, nil).Once()
	claims.On("CommitClaim", mock.Anything, mock.MatchedBy(func(in repo.CommitClaimInput) bool {
		return in.Card == card && in.ClaimantID == "claimant-a" && in.DedupeKey == "claimant-a"
	})).Return(&model.ClaimRecord{
		ID:          uuid.New(),
		ProjectID:   project.ID,
		CardContent: card.Content,
		ClaimantID:  "claimant-a",
	}, nil).Once()

	svc := newTestClaimService(projects, cards, claims)

	out, err := svc.Claim(context.Background(), ClaimInput{
		ProjectID:     project.ID,
		ClaimPassword: "open-sesame",
		ClaimantID:    "claimant-a",
		Username:      "alice",
	})

	assert.NoError(t, err)
	assert.NotNil(t, out)
	assert.Equal(t, "GIFT-0001", out.CardContent)
	assert.False(t, out.AlreadyClaimed)
	projects.AssertExpectations(t)
	cards.AssertExpectations(t)
	claims.AssertExpectations(t)
}

func TestClaimService_Claim_RandomDedupeWhenUnrestricted(t *testing.T) {
	project := createTestProject(true, false)
	card := createTestCard(project.ID, "GIFT-0002")

	projects := &MockProjectRepo{}
	cards := &MockCardRepo{}
	claims := &MockClaimRepo{}

	projects.On("Get", mock.Anything, project.ID).Return(project, nil)
	cards.On("PickUnclaimed", mock.Anything, project.ID).Return(card, nil).Once()
	claims.On("CommitClaim", mock.Anything, mock.MatchedBy(func(in repo.CommitClaimInput) bool {
		// Without the one-claim restriction the dedupe key must not collide
		// across claims by the same identity.
		_, err := uuid.Parse(in.DedupeKey)
		return err == nil && in.DedupeKey != in.ClaimantID
	})).Return(&model.ClaimRecord{
		ID:          uuid.New(),
		ProjectID:   project.ID,
		CardContent: card.Content,
		ClaimantID:  "claimant-a",
	}, nil).Once()

	svc := newTestClaimService(projects, cards, claims)

	out, err := svc.Claim(context.Background(), ClaimInput{
		ProjectID:     project.ID,
		ClaimPassword: "open-sesame",
		ClaimantID:    "claimant-a",
	})

	assert.NoError(t, err)
	assert.Equal(t, "GIFT-0002", out.CardContent)
	// The fast-path duplicate lookup only runs for restricted projects.
	claims.AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything)
	claims.AssertExpectations(t)
}

func TestClaimService_Claim_AlreadyClaimed(t *testing.T) {
	project := createTestProject(true, true)
	prior := &model.ClaimRecord{
		ID:          uuid.New(),
		ProjectID:   project.ID,
		CardContent: "GIFT-0042",
		ClaimantID:  "claimant-a",
	}

	projects := &MockProjectRepo{}
	cards := &MockCardRepo{}
	claims := &MockClaimRepo{}

	projects.On("Get", mock.Anything, project.ID).Return(project, nil)
	claims.On("Find", mock.Anything, project.ID, "claimant-a").Return(prior, nil).Once()

	svc := newTestClaimService(projects, cards, claims)

	out, err := svc.Claim(context.Background(), ClaimInput{
		ProjectID:     project.ID,
		ClaimPassword: "open-sesame",
		ClaimantID:    "claimant-a",
	})

	assert.NoError(t, err)
	assert.NotNil(t, out)
	assert.True(t, out.AlreadyClaimed)
	assert.Equal(t, "GIFT-0042", out.CardContent)
	// Idempotent return must not touch the pool.
	cards.AssertNotCalled(t, "PickUnclaimed", mock.Anything, mock.Anything)
	claims.AssertNotCalled(t, "CommitClaim", mock.Anything, mock.Anything)
}

func TestClaimService_Claim_PoolExhausted(t *testing.T) {
	project := createTestProject(true, false)

	projects := &MockProjectRepo{}
	cards := &MockCardRepo{}
	claims := &MockClaimRepo{}

	projects.On("Get", mock.Anything, project.ID).Return(project, nil)
	cards.On("PickUnclaimed", mock.Anything, project.ID).Return(nil, repo.ErrNoCardAvailable).Once()

	svc := newTestClaimService(projects, cards, claims)

	out, err := svc.Claim(context.Background(), ClaimInput{
		ProjectID:     project.ID,
		ClaimPassword: "open-sesame",
		ClaimantID:    "claimant-a",
	})

	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrPoolExhausted)
	cards.AssertExpectations(t)
}

func TestClaimService_Claim_RetryAfterCardRace(t *testing.T) {
	project := createTestProject(true, false)
	lost := createTestCard(project.ID, "GIFT-0003")
	won := createTestCard(project.ID, "GIFT-0004")

	projects := &MockProjectRepo{}
	cards := &MockCardRepo{}
	claims := &MockClaimRepo{}

	projects.On("Get", mock.Anything, project.ID).Return(project, nil)
	cards.On("PickUnclaimed", mock.Anything, project.ID).Return(lost, nil).Once()
	cards.On("PickUnclaimed", mock.Anything, project.ID).Return(won, nil).Once()
	claims.On("CommitClaim", mock.Anything, mock.MatchedBy(func(in repo.CommitClaimInput) bool {
		return in.Card == lost
	})).Return(nil, repo.ErrCardClaimed).Once()
	claims.On("CommitClaim", mock.Anything, mock.MatchedBy(func(in repo.CommitClaimInput) bool {
		return in.Card == won
	})).Return(&model.ClaimRecord{
		ID:          uuid.New(),
		ProjectID:   project.ID,
		CardContent: won.Content,
		ClaimantID:  "claimant-a",
	}, nil).Once()

	svc := newTestClaimService(projects, cards, claims)

	out, err := svc.Claim(context.Background(), ClaimInput{
		ProjectID:     project.ID,
		ClaimPassword: "open-sesame",
		ClaimantID:    "claimant-a",
	})

	assert.NoError(t, err)
	assert.Equal(t, "GIFT-0004", out.CardContent)
	cards.AssertExpectations(t)
	claims.AssertExpectations(t)
}

func TestClaimService_Claim_RaceLostAfterBudget(t *testing.T) {
	project := createTestProject(true, false)
	card := createTestCard(project.ID, "GIFT-0005")

	projects := &MockProjectRepo{}
	cards := &MockCardRepo{}
	claims := &MockClaimRepo{}

	projects.On("Get", mock.Anything, project.ID).Return(project, nil)
	// Budget is 3 in testConfig; every attempt loses its card.
	cards.On("PickUnclaimed", mock.Anything, project.ID).Return(card, nil).Times(3)
	claims.On("CommitClaim", mock.Anything, mock.Anything).Return(nil, repo.ErrCardClaimed).Times(3)

	svc := newTestClaimService(projects, cards, claims)

	out, err := svc.Claim(context.Background(), ClaimInput{
		ProjectID:     project.ID,
		ClaimPassword: "open-sesame",
		ClaimantID:    "claimant-a",
	})

	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrRaceLost)
	cards.AssertExpectations(t)
	claims.AssertExpectations(t)
}

func TestClaimService_Claim_IdentityRaceReturnsWinner(t *testing.T) {
	project := createTestProject(true, true)
	card := createTestCard(project.ID, "GIFT-0006")
	winner := &model.ClaimRecord{
		ID:          uuid.New(),
		ProjectID:   project.ID,
		CardContent: "GIFT-0007",
		ClaimantID:  "claimant-a",
	}

	projects := &MockProjectRepo{}
	cards := &MockCardRepo{}
	claims := &MockClaimRepo{}

	projects.On("Get", mock.Anything, project.ID).Return(project, nil)
	// Fast path sees no prior record, then the concurrent twin commits first.
	claims.On("Find", mock.Anything, project.ID, "claimant-a").Return(nil, nil).Once()
	cards.On("PickUnclaimed", mock.Anything, project.ID).Return(card, nil).Once()
	claims.On("CommitClaim", mock.Anything, mock.Anything).Return(nil, repo.ErrDuplicateClaim).Once()
	claims.On("Find", mock.Anything, project.ID, "claimant-a").Return(winner, nil).Once()

	svc := newTestClaimService(projects, cards, claims)

	out, err := svc.Claim(context.Background(), ClaimInput{
		ProjectID:     project.ID,
		ClaimPassword: "open-sesame",
		ClaimantID:    "claimant-a",
	})

	assert.NoError(t, err)
	assert.NotNil(t, out)
	assert.True(t, out.AlreadyClaimed)
	assert.Equal(t, "GIFT-0007", out.CardContent)
	claims.AssertExpectations(t)
}

func TestClaimService_Claim_CommitError(t *testing.T) {
	project := createTestProject(true, false)
	card := createTestCard(project.ID, "GIFT-0008")

	projects := &MockProjectRepo{}
	cards := &MockCardRepo{}
	claims := &MockClaimRepo{}

	projects.On("Get", mock.Anything, project.ID).Return(project, nil)
	cards.On("PickUnclaimed", mock.Anything, project.ID).Return(card, nil).Once()
	claims.On("CommitClaim", mock.Anything, mock.Anything).Return(nil, errors.New("db down")).Once()

	svc := newTestClaimService(projects, cards, claims)

	out, err := svc.Claim(context.Background(), ClaimInput{
		ProjectID:     project.ID,
		ClaimPassword: "open-sesame",
		ClaimantID:    "claimant-a",
	})

	assert.Nil(t, out)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestClaimService_Status(t *testing.T) {
	project := createTestProject(true, true)
	rec := &model.ClaimRecord{
		ID:          uuid.New(),
		ProjectID:   project.ID,
		CardContent: "GIFT-0009",
		ClaimantID:  "claimant-a",
	}

	tests := []struct {
		name        string
		setup       func(*MockProjectRepo, *MockClaimRepo)
		wantErr     error
		wantClaimed bool
	}{
		{
			name: "claimed",
			setup: func(projects *MockProjectRepo, claims *MockClaimRepo) {
				projects.On("Get", mock.Anything, project.ID).Return(project, nil)
				claims.On("Find", mock.Anything, project.ID, "claimant-a").Return(rec, nil)
			},
			wantClaimed: true,
		},
		{
			name: "not claimed",
			setup: func(projects *MockProjectRepo, claims *MockClaimRepo) {
				projects.On("Get", mock.Anything, project.ID).Return(project, nil)
				claims.On("Find", mock.Anything, project.ID, "claimant-a").Return(nil, nil)
			},
			wantClaimed: false,
		},
		{
			name: "project not found",
			setup: func(projects *MockProjectRepo, claims *MockClaimRepo) {
				projects.On("Get", mock.Anything, project.ID).Return(nil, gorm.ErrRecordNotFound)
			},
			wantErr: ErrProjectNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			projects := &MockProjectRepo{}
			claims := &MockClaimRepo{}
			tt.setup(projects, claims)

			svc := newTestClaimService(projects, &MockCardRepo{}, claims)

			status, err := svc.Status(context.Background(), project.ID, "claimant-a")

			if tt.wantErr != nil {
				assert.Nil(t, status)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantClaimed, status.Claimed)
			assert.Equal(t, project.ID, status.Project.ID)
			assert.Equal(t, project.TotalCards, status.Project.TotalCards)
			if tt.wantClaimed {
				assert.Equal(t, rec.CardContent, status.Record.CardContent)
			} else {
				assert.Nil(t, status.Record)
			}
			projects.AssertExpectations(t)
			claims.AssertExpectations(t)
		})
	}
}
