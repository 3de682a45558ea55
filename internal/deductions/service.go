package deductions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/davidhalperin/gemcore-backend/internal/history"
	"github.com/davidhalperin/gemcore-backend/internal/inventory"
	"github.com/davidhalperin/gemcore-backend/pkg/db/models"
	"github.com/davidhalperin/gemcore-backend/pkg/enums"
	pkgerrors "github.com/davidhalperin/gemcore-backend/pkg/errors"
	"github.com/davidhalperin/gemcore-backend/pkg/logger"
	"github.com/davidhalperin/gemcore-backend/pkg/metrics"
)

// CreateInput carries the fields for a new deduction. PricePerCt is optional
// for parcel-backed deductions: when nil, the price is snapshotted from the
// parcel at deduction time.
type CreateInput struct {
	OrderID           uuid.UUID
	Type              enums.DeductionType
	ParcelID          *string
	CtWeight          decimal.Decimal
	Stones            int
	PricePerCt        *decimal.Decimal
	Comments          *string
	IncludeInItemCost *bool
	ActorID           uuid.UUID
}

// UpdateInput carries the editable deduction fields. Inventory is never moved
// by an update; callers restore and re-deduct when the physical stones change.
type UpdateInput struct {
	CtWeight   *decimal.Decimal
	Stones     *int
	PricePerCt *decimal.Decimal
	Comments   *string
	ActorID    uuid.UUID
}

// Service is the deduction engine: every diamond movement against an order
// goes through here.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.DiamondDeduction, error)
	Get(ctx context.Context, id uuid.UUID) (*models.DiamondDeduction, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.DiamondDeduction, error)
	HistoryByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ParcelHistoryEntry, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.DiamondDeduction, error)
	Delete(ctx context.Context, id uuid.UUID, force bool, actorID uuid.UUID) error
	BatchDelete(ctx context.Context, ids []uuid.UUID, force bool, actorID uuid.UUID) error
	SetIncludeInCost(ctx context.Context, id uuid.UUID, include bool) (*models.DiamondDeduction, error)
	RestoreToStock(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*models.DiamondDeduction, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	stock    InventoryAdjuster
	parcels  parcelReader
	recorder historyStore
	costs    costRecalculator
	metrics  *metrics.DeductionMetrics
	logg     *logger.Logger
}

// NewService builds the deduction engine with its collaborators.
func NewService(
	repo Repository,
	tx txRunner,
	stock InventoryAdjuster,
	parcels parcelReader,
	recorder historyStore,
	costs costRecalculator,
	m *metrics.DeductionMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("deductions repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if stock == nil {
		return nil, fmt.Errorf("inventory adjuster required")
	}
	if parcels == nil {
		return nil, fmt.Errorf("parcel reader required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("history recorder required")
	}
	if costs == nil {
		return nil, fmt.Errorf("cost recalculator required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		stock:    stock,
		parcels:  parcels,
		recorder: recorder,
		costs:    costs,
		metrics:  m,
		logg:     logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (deduction *models.DiamondDeduction, err error) {
	defer func() { s.metrics.IncOperation("create", err) }()

	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid deduction type")
	}
	if !input.CtWeight.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "carat weight must be positive")
	}
	if input.Stones < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stones cannot be negative")
	}
	if input.PricePerCt != nil && input.PricePerCt.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price per carat cannot be negative")
	}

	include := true
	if input.IncludeInItemCost != nil {
		include = *input.IncludeInItemCost
	}

	row := &models.DiamondDeduction{
		OrderID:           input.OrderID,
		Type:              input.Type,
		CtWeight:          input.CtWeight,
		Stones:            input.Stones,
		Comments:          input.Comments,
		IncludeInItemCost: include,
		CreatedBy:         input.ActorID,
	}
	if input.PricePerCt != nil {
		row.PricePerCt = *input.PricePerCt
	}
	row.TotalPrice = totalPrice(row.CtWeight, row.PricePerCt)

	if input.Type.UsesInventory() {
		if input.ParcelID == nil || *input.ParcelID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "parcel id required for parcel-backed deductions")
		}
		if input.Stones < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "parcel-backed deductions take at least one stone")
		}
		row.ParcelID = input.ParcelID

		var parcelAfter *models.InventoryParcel
		txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			parcel, deltaErr := s.stock.ApplyDelta(ctx, tx, *input.ParcelID, -input.Stones, input.CtWeight.Neg())
			if deltaErr != nil {
				return classifyDeltaError(deltaErr)
			}
			parcelAfter = parcel

			// The parcel's price at deduction time is the cost snapshot,
			// unless the caller supplied an explicit override.
			if input.PricePerCt == nil {
				row.PricePerCt = parcel.PricePerCt
				row.TotalPrice = totalPrice(row.CtWeight, row.PricePerCt)
			}

			if _, createErr := s.repo.WithTx(tx).Create(ctx, row); createErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "create deduction")
			}
			return nil
		})
		if txErr != nil {
			return nil, txErr
		}

		s.recorder.Record(ctx, history.Entry{
			ParcelID:    *input.ParcelID,
			ActorID:     input.ActorID,
			Type:        enums.HistoryEventDeduction,
			Stones:      -input.Stones,
			CtWeight:    input.CtWeight.Neg(),
			CtPrice:     row.PricePerCt,
			TotalWeight: parcelAfter.TotalCarat,
			OrderID:     &row.OrderID,
			DeductionID: &row.ID,
			Comments:    input.Comments,
		})
	} else {
		if _, createErr := s.repo.Create(ctx, row); createErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "create deduction")
		}
	}

	s.recalculate(ctx, row.OrderID)
	return row, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.DiamondDeduction, error) {
	return s.load(ctx, id)
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.DiamondDeduction, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	list, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deductions")
	}
	return list, nil
}

// HistoryByOrder returns the audit trail the engine has written for an
// order's deductions.
func (s *service) HistoryByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ParcelHistoryEntry, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	entries, err := s.recorder.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order history")
	}
	return entries, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (deduction *models.DiamondDeduction, err error) {
	defer func() { s.metrics.IncOperation("update", err) }()

	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	prevStones := row.Stones
	prevCtWeight := row.CtWeight

	if input.CtWeight != nil {
		if !input.CtWeight.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "carat weight must be positive")
		}
		row.CtWeight = *input.CtWeight
	}
	if input.Stones != nil {
		if *input.Stones < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stones cannot be negative")
		}
		row.Stones = *input.Stones
	}
	if input.PricePerCt != nil {
		if input.PricePerCt.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price per carat cannot be negative")
		}
		row.PricePerCt = *input.PricePerCt
	}
	if input.Comments != nil {
		row.Comments = input.Comments
	}
	row.TotalPrice = totalPrice(row.CtWeight, row.PricePerCt)

	if err := s.repo.Update(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update deduction")
	}

	if row.Type.UsesInventory() && row.ParcelID != nil {
		if parcel, lookErr := s.parcels.FindByID(ctx, *row.ParcelID); lookErr == nil {
			// An edit moves no inventory. The entry carries the old-to-new
			// diff of the changed fields, not the deduction's full amounts.
			s.recorder.Record(ctx, history.Entry{
				ParcelID:    *row.ParcelID,
				ActorID:     input.ActorID,
				Type:        enums.HistoryEventEdit,
				Stones:      row.Stones - prevStones,
				CtWeight:    row.CtWeight.Sub(prevCtWeight),
				CtPrice:     row.PricePerCt,
				TotalWeight: parcel.TotalCarat,
				OrderID:     &row.OrderID,
				DeductionID: &row.ID,
				Comments:    row.Comments,
			})
		}
	}

	s.recalculate(ctx, row.OrderID)
	return row, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID, force bool, actorID uuid.UUID) (err error) {
	defer func() { s.metrics.IncOperation("delete", err) }()

	row, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	// Deleting a parcel-backed deduction does not return stock. Require an
	// explicit restore first, or a force flag acknowledging the write-off.
	if row.Type.UsesInventory() && !row.AddedToStock && !force {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "deduction still holds parcel stock; restore to stock first or force delete")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "deduction not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete deduction")
	}

	if row.Type.UsesInventory() && row.ParcelID != nil {
		if parcel, lookErr := s.parcels.FindByID(ctx, *row.ParcelID); lookErr == nil {
			note := "deduction record removed"
			if !row.AddedToStock {
				note = "deduction record removed without restore"
			}
			s.recorder.Record(ctx, history.Entry{
				ParcelID:    *row.ParcelID,
				ActorID:     actorID,
				Type:        enums.HistoryEventDelete,
				CtPrice:     row.PricePerCt,
				TotalWeight: parcel.TotalCarat,
				OrderID:     &row.OrderID,
				DeductionID: &row.ID,
				Comments:    &note,
			})
		}
	}

	s.recalculate(ctx, row.OrderID)
	return nil
}

func (s *service) BatchDelete(ctx context.Context, ids []uuid.UUID, force bool, actorID uuid.UUID) error {
	var combined error
	for _, id := range ids {
		if err := s.Delete(ctx, id, force, actorID); err != nil {
			combined = multierr.Append(combined, fmt.Errorf("deduction %s: %w", id, err))
		}
	}
	return combined
}

func (s *service) SetIncludeInCost(ctx context.Context, id uuid.UUID, include bool) (deduction *models.DiamondDeduction, err error) {
	defer func() { s.metrics.IncOperation("set_include_in_cost", err) }()

	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if row.IncludeInItemCost == include {
		return row, nil
	}

	if err := s.repo.SetIncludeInCost(ctx, id, include); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update include flag")
	}
	row.IncludeInItemCost = include

	s.recalculate(ctx, row.OrderID)
	return row, nil
}

func (s *service) RestoreToStock(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (deduction *models.DiamondDeduction, err error) {
	defer func() { s.metrics.IncOperation("restore_to_stock", err) }()

	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !row.Type.UsesInventory() || row.ParcelID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "manual deductions have no parcel stock to restore")
	}
	if row.AddedToStock {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "deduction already restored to stock")
	}

	var parcelAfter *models.InventoryParcel
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		parcel, deltaErr := s.stock.ApplyDelta(ctx, tx, *row.ParcelID, row.Stones, row.CtWeight)
		if deltaErr != nil {
			return classifyDeltaError(deltaErr)
		}
		parcelAfter = parcel
		if flagErr := s.repo.WithTx(tx).SetAddedToStock(ctx, id, true); flagErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, flagErr, "mark deduction restored")
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	row.AddedToStock = true

	// The deduction's audit rows are replaced by a single restoration entry.
	s.recorder.Erase(ctx, row.ID)
	s.recorder.Record(ctx, history.Entry{
		ParcelID:    *row.ParcelID,
		ActorID:     actorID,
		Type:        enums.HistoryEventRestoration,
		Stones:      row.Stones,
		CtWeight:    row.CtWeight,
		CtPrice:     row.PricePerCt,
		TotalWeight: parcelAfter.TotalCarat,
		OrderID:     &row.OrderID,
		DeductionID: &row.ID,
	})

	s.recalculate(ctx, row.OrderID)
	return row, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.DiamondDeduction, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deduction id required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "deduction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load deduction")
	}
	return row, nil
}

// recalculate refreshes the order's cached cost row. The deduction itself has
// already committed, so a recompute failure is logged rather than surfaced;
// the next mutation or an explicit recalculation repairs the cache.
func (s *service) recalculate(ctx context.Context, orderID uuid.UUID) {
	if _, err := s.costs.Recalculate(ctx, orderID); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithOrderID(ctx, orderID.String()), "recalculate order costs", err)
	}
}

func totalPrice(ctWeight, pricePerCt decimal.Decimal) decimal.Decimal {
	return ctWeight.Mul(pricePerCt).Round(2)
}

func classifyDeltaError(err error) error {
	switch {
	case errors.Is(err, inventory.ErrInsufficientStock):
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "parcel stock too low")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "parcel not found")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust parcel stock")
	}
}
