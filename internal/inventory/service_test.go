package inventory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/davidhalperin/gemcore-backend/internal/history"
	"github.com/davidhalperin/gemcore-backend/pkg/db/models"
	"github.com/davidhalperin/gemcore-backend/pkg/enums"
	pkgerrors "github.com/davidhalperin/gemcore-backend/pkg/errors"
	"github.com/davidhalperin/gemcore-backend/pkg/pagination"
)

type fakeParcelRepo struct {
	parcels map[string]*models.InventoryParcel
}

func newFakeParcelRepo() *fakeParcelRepo {
	return &fakeParcelRepo{parcels: make(map[string]*models.InventoryParcel)}
}

func (f *fakeParcelRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeParcelRepo) Create(_ context.Context, parcel *models.InventoryParcel) (*models.InventoryParcel, error) {
	f.parcels[parcel.ParcelID] = parcel
	return parcel, nil
}

func (f *fakeParcelRepo) FindByID(_ context.Context, parcelID string) (*models.InventoryParcel, error) {
	if p, ok := f.parcels[parcelID]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeParcelRepo) FindByIDWithChildren(ctx context.Context, parcelID string) (*models.InventoryParcel, error) {
	parcel, err := f.FindByID(ctx, parcelID)
	if err != nil {
		return nil, err
	}
	for _, p := range f.parcels {
		if p.ParentParcelID != nil && *p.ParentParcelID == parcelID {
			parcel.SubParcels = append(parcel.SubParcels, *p)
		}
	}
	return parcel, nil
}

func (f *fakeParcelRepo) List(_ context.Context, _ ListFilter) ([]models.InventoryParcel, error) {
	out := make([]models.InventoryParcel, 0, len(f.parcels))
	for _, p := range f.parcels {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeParcelRepo) Update(_ context.Context, parcel *models.InventoryParcel) error {
	f.parcels[parcel.ParcelID] = parcel
	return nil
}

func (f *fakeParcelRepo) MarkParent(_ context.Context, parcelID string) error {
	if p, ok := f.parcels[parcelID]; ok {
		p.IsParent = true
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeParcelRepo) Delete(_ context.Context, parcelID string) error {
	delete(f.parcels, parcelID)
	return nil
}

func (f *fakeParcelRepo) ApplyDelta(_ context.Context, _ *gorm.DB, parcelID string, stonesDelta int, caratDelta decimal.Decimal) (*models.InventoryParcel, error) {
	p, ok := f.parcels[parcelID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	newCarat := p.TotalCarat.Add(caratDelta)
	newStones := p.NumberOfStones + stonesDelta
	if newCarat.IsNegative() || newStones < 0 {
		return nil, ErrInsufficientStock
	}
	p.TotalCarat = newCarat
	p.NumberOfStones = newStones
	copied := *p
	return &copied, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type captureRecorder struct {
	entries []history.Entry
}

func (c *captureRecorder) Record(_ context.Context, entry history.Entry) {
	c.entries = append(c.entries, entry)
}

type emptyHistoryReader struct{}

func (emptyHistoryReader) ListByParcel(_ context.Context, _ string, _ pagination.Params) ([]models.ParcelHistoryEntry, error) {
	return nil, nil
}

func newTestService(t *testing.T, repo Repository, rec *captureRecorder) Service {
	t.Helper()
	svc, err := NewService(repo, fakeTxRunner{}, rec, emptyHistoryReader{})
	require.NoError(t, err)
	return svc
}

func TestCreateParcelRecordsInitialStock(t *testing.T) {
	repo := newFakeParcelRepo()
	rec := &captureRecorder{}
	svc := newTestService(t, repo, rec)

	parcel, err := svc.Create(context.Background(), CreateParcelInput{
		ParcelID:       "PAR-1",
		TotalCarat:     decimal.RequireFromString("10.000"),
		NumberOfStones: 20,
		PricePerCt:     decimal.RequireFromString("150"),
	})
	require.NoError(t, err)
	assert.Equal(t, "PAR-1", parcel.ParcelID)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, enums.HistoryEventAdd, rec.entries[0].Type)
	assert.Equal(t, 20, rec.entries[0].Stones)
	assert.True(t, rec.entries[0].TotalWeight.Equal(decimal.RequireFromString("10.000")))
}

func TestCreateParcelRejectsDuplicateID(t *testing.T) {
	repo := newFakeParcelRepo()
	svc := newTestService(t, repo, &captureRecorder{})

	_, err := svc.Create(context.Background(), CreateParcelInput{ParcelID: "PAR-1"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateParcelInput{ParcelID: "PAR-1"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestAdjustStockRecordsPostAdjustmentTotal(t *testing.T) {
	repo := newFakeParcelRepo()
	rec := &captureRecorder{}
	svc := newTestService(t, repo, rec)

	_, err := svc.Create(context.Background(), CreateParcelInput{
		ParcelID:       "PAR-1",
		TotalCarat:     decimal.RequireFromString("10.000"),
		NumberOfStones: 20,
		PricePerCt:     decimal.RequireFromString("150"),
	})
	require.NoError(t, err)
	rec.entries = nil

	updated, err := svc.AdjustStock(context.Background(), AdjustStockInput{
		ParcelID:    "PAR-1",
		StonesDelta: -4,
		CaratDelta:  decimal.RequireFromString("-2.000"),
	})
	require.NoError(t, err)
	assert.Equal(t, 16, updated.NumberOfStones)

	require.Len(t, rec.entries, 1)
	entry := rec.entries[0]
	assert.Equal(t, enums.HistoryEventReduce, entry.Type)
	assert.Equal(t, -4, entry.Stones)
	assert.True(t, entry.CtWeight.Equal(decimal.RequireFromString("-2.000")))
	assert.True(t, entry.TotalWeight.Equal(decimal.RequireFromString("8.000")),
		"snapshot must reflect the post-adjustment total, got %s", entry.TotalWeight)
}

func TestAdjustStockRefusesOverdraw(t *testing.T) {
	repo := newFakeParcelRepo()
	rec := &captureRecorder{}
	svc := newTestService(t, repo, rec)

	_, err := svc.Create(context.Background(), CreateParcelInput{
		ParcelID:       "PAR-1",
		TotalCarat:     decimal.RequireFromString("1.000"),
		NumberOfStones: 2,
	})
	require.NoError(t, err)
	rec.entries = nil

	_, err = svc.AdjustStock(context.Background(), AdjustStockInput{
		ParcelID:    "PAR-1",
		StonesDelta: -5,
		CaratDelta:  decimal.RequireFromString("-0.500"),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
	assert.Empty(t, rec.entries, "no history entry for a rejected adjustment")
}

func TestSplitMovesStockIntoSubParcel(t *testing.T) {
	repo := newFakeParcelRepo()
	rec := &captureRecorder{}
	svc := newTestService(t, repo, rec)

	_, err := svc.Create(context.Background(), CreateParcelInput{
		ParcelID:       "PAR-1",
		TotalCarat:     decimal.RequireFromString("10.000"),
		NumberOfStones: 20,
		PricePerCt:     decimal.RequireFromString("150"),
	})
	require.NoError(t, err)
	rec.entries = nil

	child, err := svc.Split(context.Background(), SplitParcelInput{
		ParentID: "PAR-1",
		ChildID:  "PAR-1-A",
		Stones:   5,
		CtWeight: decimal.RequireFromString("2.500"),
	})
	require.NoError(t, err)

	assert.Equal(t, "PAR-1-A", child.ParcelID)
	require.NotNil(t, child.ParentParcelID)
	assert.Equal(t, "PAR-1", *child.ParentParcelID)
	assert.True(t, child.PricePerCt.Equal(decimal.RequireFromString("150")), "child inherits parent pricing")

	parent, err := svc.Get(context.Background(), "PAR-1")
	require.NoError(t, err)
	assert.True(t, parent.IsParent)
	assert.Equal(t, 15, parent.NumberOfStones)
	assert.True(t, parent.TotalCarat.Equal(decimal.RequireFromString("7.500")))

	require.Len(t, rec.entries, 2)
	assert.Equal(t, enums.HistoryEventReduce, rec.entries[0].Type)
	assert.Equal(t, enums.HistoryEventAdd, rec.entries[1].Type)
}

func TestSplitRefusesSecondLevel(t *testing.T) {
	repo := newFakeParcelRepo()
	svc := newTestService(t, repo, &captureRecorder{})

	_, err := svc.Create(context.Background(), CreateParcelInput{
		ParcelID:       "PAR-1",
		TotalCarat:     decimal.RequireFromString("10.000"),
		NumberOfStones: 20,
	})
	require.NoError(t, err)

	_, err = svc.Split(context.Background(), SplitParcelInput{
		ParentID: "PAR-1",
		ChildID:  "PAR-1-A",
		Stones:   5,
		CtWeight: decimal.RequireFromString("2.500"),
	})
	require.NoError(t, err)

	_, err = svc.Split(context.Background(), SplitParcelInput{
		ParentID: "PAR-1-A",
		ChildID:  "PAR-1-A-1",
		Stones:   1,
		CtWeight: decimal.RequireFromString("0.500"),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestDeleteRefusesParcelWithStock(t *testing.T) {
	repo := newFakeParcelRepo()
	svc := newTestService(t, repo, &captureRecorder{})

	_, err := svc.Create(context.Background(), CreateParcelInput{
		ParcelID:       "PAR-1",
		TotalCarat:     decimal.RequireFromString("1.000"),
		NumberOfStones: 1,
	})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "PAR-1")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestDeleteEmptyParcel(t *testing.T) {
	repo := newFakeParcelRepo()
	svc := newTestService(t, repo, &captureRecorder{})

	_, err := svc.Create(context.Background(), CreateParcelInput{ParcelID: "PAR-1"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "PAR-1"))

	_, err = svc.Get(context.Background(), "PAR-1")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
