package history

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/davidhalperin/gemcore-backend/pkg/db/models"
	"github.com/davidhalperin/gemcore-backend/pkg/enums"
	"github.com/davidhalperin/gemcore-backend/pkg/pagination"
)

type fakeHistoryRepo struct {
	entries []models.ParcelHistoryEntry
	failing bool
}

func (f *fakeHistoryRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeHistoryRepo) Create(_ context.Context, entry *models.ParcelHistoryEntry) (*models.ParcelHistoryEntry, error) {
	if f.failing {
		return nil, errors.New("history table unavailable")
	}
	entry.ID = uuid.New()
	f.entries = append(f.entries, *entry)
	return entry, nil
}

func (f *fakeHistoryRepo) DeleteByDeductionID(_ context.Context, deductionID uuid.UUID) (int64, error) {
	if f.failing {
		return 0, errors.New("history table unavailable")
	}
	var kept []models.ParcelHistoryEntry
	var removed int64
	for _, e := range f.entries {
		if e.DeductionID != nil && *e.DeductionID == deductionID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
	return removed, nil
}

func (f *fakeHistoryRepo) ListByParcel(_ context.Context, parcelID string, _ pagination.Params) ([]models.ParcelHistoryEntry, error) {
	var out []models.ParcelHistoryEntry
	for _, e := range f.entries {
		if e.ParcelID == parcelID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeHistoryRepo) ListByOrder(_ context.Context, orderID uuid.UUID) ([]models.ParcelHistoryEntry, error) {
	var out []models.ParcelHistoryEntry
	for _, e := range f.entries {
		if e.OrderID != nil && *e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeUserLookup struct {
	user *models.User
}

func (f *fakeUserLookup) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if f.user != nil && f.user.ID == id {
		return f.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func TestRecorderResolvesEmployeeName(t *testing.T) {
	actor := &models.User{ID: uuid.New(), FirstName: "Dana", LastName: "Klein", Email: "dana@gemcore.example"}
	repo := &fakeHistoryRepo{}
	rec, err := NewRecorder(repo, &fakeUserLookup{user: actor}, nil, nil)
	require.NoError(t, err)

	rec.Record(context.Background(), Entry{
		ParcelID:    "PAR-1",
		ActorID:     actor.ID,
		Type:        enums.HistoryEventDeduction,
		Stones:      -3,
		CtWeight:    decimal.RequireFromString("-1.500"),
		TotalWeight: decimal.RequireFromString("8.500"),
	})

	require.Len(t, repo.entries, 1)
	assert.Equal(t, "Dana Klein", repo.entries[0].Employee)
	assert.Equal(t, -3, repo.entries[0].Stones)
}

func TestRecorderFallsBackToActorIDWhenUserMissing(t *testing.T) {
	repo := &fakeHistoryRepo{}
	rec, err := NewRecorder(repo, &fakeUserLookup{}, nil, nil)
	require.NoError(t, err)

	actorID := uuid.New()
	rec.Record(context.Background(), Entry{
		ParcelID: "PAR-1",
		ActorID:  actorID,
		Type:     enums.HistoryEventAdd,
	})

	require.Len(t, repo.entries, 1)
	assert.Equal(t, actorID.String(), repo.entries[0].Employee)
}

func TestRecorderSwallowsWriteFailures(t *testing.T) {
	repo := &fakeHistoryRepo{failing: true}
	rec, err := NewRecorder(repo, nil, nil, nil)
	require.NoError(t, err)

	// Must not panic or surface the error.
	rec.Record(context.Background(), Entry{
		ParcelID: "PAR-1",
		Type:     enums.HistoryEventDeduction,
	})
	assert.Empty(t, repo.entries)
}

func TestRecorderRejectsInvalidEventType(t *testing.T) {
	repo := &fakeHistoryRepo{}
	rec, err := NewRecorder(repo, nil, nil, nil)
	require.NoError(t, err)

	rec.Record(context.Background(), Entry{
		ParcelID: "PAR-1",
		Type:     enums.HistoryEventType("vanish"),
	})
	assert.Empty(t, repo.entries)
}

func TestEraseRemovesDeductionRows(t *testing.T) {
	repo := &fakeHistoryRepo{}
	rec, err := NewRecorder(repo, nil, nil, nil)
	require.NoError(t, err)

	dedID := uuid.New()
	rec.Record(context.Background(), Entry{
		ParcelID:    "PAR-1",
		Type:        enums.HistoryEventDeduction,
		DeductionID: &dedID,
	})
	rec.Record(context.Background(), Entry{
		ParcelID: "PAR-1",
		Type:     enums.HistoryEventAdd,
	})
	require.Len(t, repo.entries, 2)

	rec.Erase(context.Background(), dedID)
	require.Len(t, repo.entries, 1)
	assert.Equal(t, enums.HistoryEventAdd, repo.entries[0].Type)
}
