package keyword

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/moneybuckets/internal/platform/bucket"
)

type memRepo struct {
	mappings []*Mapping
}

func (r *memRepo) Create(_ context.Context, m *Mapping) error {
	for _, existing := range r.mappings {
		if existing.UserID == m.UserID && existing.Keyword == m.Keyword {
			return ErrDuplicateKeyword
		}
	}
	r.mappings = append(r.mappings, m)
	return nil
}

func (r *memRepo) Upsert(_ context.Context, m *Mapping) error {
	for _, existing := range r.mappings {
		if existing.UserID == m.UserID && existing.Keyword == m.Keyword {
			existing.BucketID = m.BucketID
			existing.UpdatedAt = m.UpdatedAt
			return nil
		}
	}
	r.mappings = append(r.mappings, m)
	return nil
}

func (r *memRepo) GetByUserID(_ context.Context, userID uuid.UUID) ([]*Mapping, error) {
	var out []*Mapping
	for _, m := range r.mappings {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memRepo) Delete(_ context.Context, userID, id uuid.UUID) (bool, error) {
	for i, m := range r.mappings {
		if m.ID == id && m.UserID == userID {
			r.mappings = append(r.mappings[:i], r.mappings[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type ownedBuckets map[uuid.UUID]uuid.UUID

func (o ownedBuckets) GetByID(_ context.Context, id, userID uuid.UUID) (*bucket.Bucket, error) {
	owner, ok := o[id]
	if !ok {
		return nil, bucket.ErrBucketNotFound
	}
	if owner != userID {
		return nil, bucket.ErrUnauthorizedAccess
	}
	return &bucket.Bucket{ID: id, UserID: owner}, nil
}

func TestFromDescription(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"TESCO STORES 3297 LONDON", "tesco stores london"},
		{"Card payment to Netflix.com on 12/03", "card payment to"},
		{"  Spotify   ", "spotify"},
		{"POS 4411 *AMAZON* MKTP", "pos amazon mktp"},
		{"12345 678", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FromDescription(tt.in))
		})
	}
}

func TestService_Suggest_LongestKeywordWins(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	groceries := uuid.New()
	fuel := uuid.New()

	repo := &memRepo{}
	svc := NewService(repo, ownedBuckets{groceries: userID, fuel: userID}, nil)

	_, err := svc.Create(ctx, userID, "Tesco", groceries)
	require.NoError(t, err)
	_, err = svc.Create(ctx, userID, "tesco  petrol", fuel)
	require.NoError(t, err)

	got, err := svc.Suggest(ctx, userID, "TESCO PETROL STATION 22")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, fuel, got.BucketID)

	got, err = svc.Suggest(ctx, userID, "tesco express")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, groceries, got.BucketID)

	got, err = svc.Suggest(ctx, userID, "coffee shop")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = svc.Suggest(ctx, uuid.New(), "tesco express")
	require.NoError(t, err)
	assert.Nil(t, got, "other users' mappings never match")
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	mine := uuid.New()
	theirs := uuid.New()

	tests := []struct {
		name     string
		keyword  string
		bucketID uuid.UUID
		wantErr  error
	}{
		{name: "valid", keyword: "Rent", bucketID: mine},
		{name: "blank keyword", keyword: "  ", bucketID: mine, wantErr: ErrEmptyKeyword},
		{name: "foreign bucket", keyword: "rent", bucketID: theirs, wantErr: bucket.ErrUnauthorizedAccess},
		{name: "unknown bucket", keyword: "rent", bucketID: uuid.New(), wantErr: bucket.ErrBucketNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memRepo{}
			svc := NewService(repo, ownedBuckets{mine: userID, theirs: uuid.New()}, nil)

			m, err := svc.Create(ctx, userID, tt.keyword, tt.bucketID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, repo.mappings)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "rent", m.Keyword)
		})
	}
}

func TestService_Create_Duplicate(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	b := uuid.New()
	svc := NewService(&memRepo{}, ownedBuckets{b: userID}, nil)

	_, err := svc.Create(ctx, userID, "rent", b)
	require.NoError(t, err)
	_, err = svc.Create(ctx, userID, "RENT", b)
	assert.ErrorIs(t, err, ErrDuplicateKeyword)
}

func TestService_Learn_Upserts(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	first := uuid.New()
	second := uuid.New()

	repo := &memRepo{}
	svc := NewService(repo, ownedBuckets{}, nil)

	require.NoError(t, svc.Learn(ctx, userID, "Netflix 0042", first))
	require.NoError(t, svc.Learn(ctx, userID, "NETFLIX 0043", second))

	require.Len(t, repo.mappings, 1)
	assert.Equal(t, "netflix", repo.mappings[0].Keyword)
	assert.Equal(t, second, repo.mappings[0].BucketID)

	assert.ErrorIs(t, svc.Learn(ctx, userID, "0042 0043", first), ErrEmptyKeyword)
}

func TestService_Delete_MissingIsNoop(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	b := uuid.New()
	repo := &memRepo{}
	svc := NewService(repo, ownedBuckets{b: userID}, nil)

	m, err := svc.Create(ctx, userID, "gym", b)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, uuid.New(), m.ID))
	assert.Len(t, repo.mappings, 1, "another user cannot delete the mapping")

	require.NoError(t, svc.Delete(ctx, userID, m.ID))
	assert.Empty(t, repo.mappings)

	require.NoError(t, svc.Delete(ctx, userID, m.ID))
}
