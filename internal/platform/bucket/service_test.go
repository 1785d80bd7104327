package bucket_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/moneybuckets/internal/platform/bucket"
)

type MockBucketRepository struct {
	mock.Mock
}

func (m *MockBucketRepository) Create(ctx context.Context, b *bucket.Bucket) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBucketRepository) GetByID(ctx context.Context, id uuid.UUID) (*bucket.Bucket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bucket.Bucket), args.Error(1)
}

func (m *MockBucketRepository) GetByUserID(ctx context.Context, userID uuid.UUID, includeHidden bool) ([]*bucket.Bucket, error) {
	args := m.Called(ctx, userID, includeHidden)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*bucket.Bucket), args.Error(1)
}

func (m *MockBucketRepository) UpdateIdentity(ctx context.Context, b *bucket.Bucket) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBucketRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockAccountChecker struct {
	mock.Mock
}

func (m *MockAccountChecker) ExistsForUser(ctx context.Context, accountID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, accountID, userID)
	return args.Bool(0), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, id uuid.UUID) (*bucket.Bucket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bucket.Bucket), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, b *bucket.Bucket) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestBucketService_Create(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	accountID := uuid.New()

	tests := []struct {
		name      string
		bucket    *bucket.Bucket
		setupMock func(*MockBucketRepository, *MockAccountChecker)
		wantErr   error
	}{
		{
			name:   "valid saving bucket",
			bucket: &bucket.Bucket{UserID: userID, Name: "Emergency fund", Type: bucket.TypeSaving},
			setupMock: func(r *MockBucketRepository, _ *MockAccountChecker) {
				r.On("Create", ctx, mock.AnythingOfType("*bucket.Bucket")).Return(nil)
			},
		},
		{
			name:   "bucket under own account",
			bucket: &bucket.Bucket{UserID: userID, Name: "Index fund", Type: bucket.TypeInvestment, AccountID: &accountID},
			setupMock: func(r *MockBucketRepository, a *MockAccountChecker) {
				a.On("ExistsForUser", ctx, accountID, userID).Return(true, nil)
				r.On("Create", ctx, mock.AnythingOfType("*bucket.Bucket")).Return(nil)
			},
		},
		{
			name:   "foreign account",
			bucket: &bucket.Bucket{UserID: userID, Name: "Index fund", Type: bucket.TypeInvestment, AccountID: &accountID},
			setupMock: func(_ *MockBucketRepository, a *MockAccountChecker) {
				a.On("ExistsForUser", ctx, accountID, userID).Return(false, nil)
			},
			wantErr: bucket.ErrAccountNotFound,
		},
		{
			name:      "missing name",
			bucket:    &bucket.Bucket{UserID: userID, Type: bucket.TypeSaving},
			setupMock: func(*MockBucketRepository, *MockAccountChecker) {},
			wantErr:   bucket.ErrMissingBucketName,
		},
		{
			name:      "unknown type",
			bucket:    &bucket.Bucket{UserID: userID, Name: "x", Type: "crypto"},
			setupMock: func(*MockBucketRepository, *MockAccountChecker) {},
			wantErr:   bucket.ErrInvalidBucketType,
		},
		{
			name:      "missing user",
			bucket:    &bucket.Bucket{Name: "x", Type: bucket.TypeExpense},
			setupMock: func(*MockBucketRepository, *MockAccountChecker) {},
			wantErr:   bucket.ErrInvalidUserID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockBucketRepository)
			accounts := new(MockAccountChecker)
			tt.setupMock(repo, accounts)

			svc := bucket.NewService(repo, accounts, nil, nil)
			got, err := svc.Create(ctx, tt.bucket)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.NotEqual(t, uuid.Nil, got.ID)
				assert.True(t, got.ContributedAmount.IsZero())
				assert.True(t, got.MarketValue.IsZero())
				assert.Nil(t, got.TotalUnits)
			}
			repo.AssertExpectations(t)
			accounts.AssertExpectations(t)
		})
	}
}

func TestBucketService_GetByID_ReadThroughCache(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	b := &bucket.Bucket{ID: uuid.New(), UserID: userID, Name: "Cash", Type: bucket.TypeSaving}

	repo := new(MockBucketRepository)
	cache := new(MockCache)
	cache.On("Get", ctx, b.ID).Return(nil, nil).Once()
	repo.On("GetByID", ctx, b.ID).Return(b, nil).Once()
	cache.On("Set", ctx, b).Return(nil).Once()
	cache.On("Get", ctx, b.ID).Return(b, nil).Once()

	svc := bucket.NewService(repo, new(MockAccountChecker), cache, nil)

	got, err := svc.GetByID(ctx, b.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	got, err = svc.GetByID(ctx, b.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestBucketService_GetByID_CacheFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	b := &bucket.Bucket{ID: uuid.New(), UserID: userID, Name: "Cash", Type: bucket.TypeSaving}

	repo := new(MockBucketRepository)
	cache := new(MockCache)
	cache.On("Get", ctx, b.ID).Return(nil, errors.New("connection refused"))
	cache.On("Set", ctx, b).Return(errors.New("connection refused"))
	repo.On("GetByID", ctx, b.ID).Return(b, nil)

	svc := bucket.NewService(repo, new(MockAccountChecker), cache, nil)

	got, err := svc.GetByID(ctx, b.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
}

func TestBucketService_GetByID_Unauthorized(t *testing.T) {
	ctx := context.Background()
	b := &bucket.Bucket{ID: uuid.New(), UserID: uuid.New()}

	repo := new(MockBucketRepository)
	repo.On("GetByID", ctx, b.ID).Return(b, nil)

	svc := bucket.NewService(repo, new(MockAccountChecker), nil, nil)

	_, err := svc.GetByID(ctx, b.ID, uuid.New())
	assert.ErrorIs(t, err, bucket.ErrUnauthorizedAccess)
}

func TestBucketService_Update_KeepsAmounts(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	units := decimal.NewFromInt(12)
	existing := &bucket.Bucket{
		ID:                uuid.New(),
		UserID:            userID,
		Name:              "Old",
		Type:              bucket.TypeSaving,
		ContributedAmount: decimal.NewFromInt(500),
		MarketValue:       decimal.NewFromInt(550),
		TotalUnits:        &units,
	}

	repo := new(MockBucketRepository)
	cache := new(MockCache)
	repo.On("GetByID", ctx, existing.ID).Return(existing, nil)
	repo.On("UpdateIdentity", ctx, mock.MatchedBy(func(b *bucket.Bucket) bool {
		return b.Name == "Brokerage" && b.Type == bucket.TypeInvestment && b.IsHidden
	})).Return(nil)
	cache.On("Invalidate", ctx, existing.ID).Return(nil)

	svc := bucket.NewService(repo, new(MockAccountChecker), cache, nil)

	got, err := svc.Update(ctx, existing.ID, userID, bucket.Identity{
		Name:     "Brokerage",
		Type:     bucket.TypeInvestment,
		IsHidden: true,
	})
	require.NoError(t, err)

	assert.True(t, got.ContributedAmount.Equal(decimal.NewFromInt(500)))
	assert.True(t, got.MarketValue.Equal(decimal.NewFromInt(550)))
	assert.Equal(t, &units, got.TotalUnits)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestBucketService_Update_Validation(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	existing := &bucket.Bucket{ID: uuid.New(), UserID: userID, Name: "Old", Type: bucket.TypeSaving}

	repo := new(MockBucketRepository)
	repo.On("GetByID", ctx, existing.ID).Return(existing, nil)

	svc := bucket.NewService(repo, new(MockAccountChecker), nil, nil)

	_, err := svc.Update(ctx, existing.ID, userID, bucket.Identity{Name: "", Type: bucket.TypeSaving})
	assert.ErrorIs(t, err, bucket.ErrMissingBucketName)
	repo.AssertNotCalled(t, "UpdateIdentity", mock.Anything, mock.Anything)
}

func TestBucketService_Delete(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	b := &bucket.Bucket{ID: uuid.New(), UserID: userID}

	t.Run("owner deletes", func(t *testing.T) {
		repo := new(MockBucketRepository)
		cache := new(MockCache)
		repo.On("GetByID", ctx, b.ID).Return(b, nil)
		repo.On("Delete", ctx, b.ID).Return(nil)
		cache.On("Invalidate", ctx, b.ID).Return(nil)

		svc := bucket.NewService(repo, new(MockAccountChecker), cache, nil)
		require.NoError(t, svc.Delete(ctx, b.ID, userID))

		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("other user", func(t *testing.T) {
		repo := new(MockBucketRepository)
		repo.On("GetByID", ctx, b.ID).Return(b, nil)

		svc := bucket.NewService(repo, new(MockAccountChecker), nil, nil)
		assert.ErrorIs(t, svc.Delete(ctx, b.ID, uuid.New()), bucket.ErrUnauthorizedAccess)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("not found", func(t *testing.T) {
		repo := new(MockBucketRepository)
		repo.On("GetByID", ctx, b.ID).Return(nil, bucket.ErrBucketNotFound)

		svc := bucket.NewService(repo, new(MockAccountChecker), nil, nil)
		assert.ErrorIs(t, svc.Delete(ctx, b.ID, userID), bucket.ErrBucketNotFound)
	})
}
