package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/davidhalperin/gemcore-backend/internal/history"
	"github.com/davidhalperin/gemcore-backend/pkg/db"
	"github.com/davidhalperin/gemcore-backend/pkg/db/models"
	"github.com/davidhalperin/gemcore-backend/pkg/enums"
	pkgerrors "github.com/davidhalperin/gemcore-backend/pkg/errors"
	"github.com/davidhalperin/gemcore-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type historyWriter interface {
	Record(ctx context.Context, entry history.Entry)
}

type historyReader interface {
	ListByParcel(ctx context.Context, parcelID string, params pagination.Params) ([]models.ParcelHistoryEntry, error)
}

// CreateParcelInput carries the fields for a new parcel.
type CreateParcelInput struct {
	ParcelID       string
	TotalCarat     decimal.Decimal
	NumberOfStones int
	PricePerCt     decimal.Decimal
	Shape          *string
	Color          *string
	Clarity        *string
	Cut            *string
	Certificate    *string
	Comments       *string
	ActorID        uuid.UUID
}

// UpdateParcelInput carries the editable grading attributes. Stock levels are
// only changed through AdjustStock so every movement leaves a history entry.
type UpdateParcelInput struct {
	PricePerCt  *decimal.Decimal
	Shape       *string
	Color       *string
	Clarity     *string
	Cut         *string
	Certificate *string
	Comments    *string
}

// AdjustStockInput describes a manual signed stock movement.
type AdjustStockInput struct {
	ParcelID    string
	StonesDelta int
	CaratDelta  decimal.Decimal
	Comments    *string
	ActorID     uuid.UUID
}

// SplitParcelInput moves stock from a parent parcel into a new sub-parcel.
type SplitParcelInput struct {
	ParentID   string
	ChildID    string
	Stones     int
	CtWeight   decimal.Decimal
	PricePerCt *decimal.Decimal
	ActorID    uuid.UUID
}

// Service defines parcel management operations.
type Service interface {
	Create(ctx context.Context, input CreateParcelInput) (*models.InventoryParcel, error)
	Get(ctx context.Context, parcelID string) (*models.InventoryParcel, error)
	List(ctx context.Context, filter ListFilter) ([]models.InventoryParcel, error)
	Update(ctx context.Context, parcelID string, input UpdateParcelInput) (*models.InventoryParcel, error)
	AdjustStock(ctx context.Context, input AdjustStockInput) (*models.InventoryParcel, error)
	Split(ctx context.Context, input SplitParcelInput) (*models.InventoryParcel, error)
	Delete(ctx context.Context, parcelID string) error
	History(ctx context.Context, parcelID string, params pagination.Params) ([]models.ParcelHistoryEntry, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	recorder historyWriter
	entries  historyReader
}

// NewService builds a parcel management service.
func NewService(repo Repository, tx txRunner, recorder historyWriter, entries historyReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("history recorder required")
	}
	if entries == nil {
		return nil, fmt.Errorf("history reader required")
	}
	return &service{repo: repo, tx: tx, recorder: recorder, entries: entries}, nil
}

func (s *service) Create(ctx context.Context, input CreateParcelInput) (*models.InventoryParcel, error) {
	parcelID := strings.TrimSpace(input.ParcelID)
	if parcelID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "parcel id required")
	}
	if input.TotalCarat.IsNegative() || input.NumberOfStones < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	if input.PricePerCt.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price per carat cannot be negative")
	}

	if _, err := s.repo.FindByID(ctx, parcelID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "parcel id already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing parcel")
	}

	parcel := &models.InventoryParcel{
		ParcelID:       parcelID,
		TotalCarat:     input.TotalCarat,
		NumberOfStones: input.NumberOfStones,
		PricePerCt:     input.PricePerCt,
		Shape:          input.Shape,
		Color:          input.Color,
		Clarity:        input.Clarity,
		Cut:            input.Cut,
		Certificate:    input.Certificate,
		Comments:       input.Comments,
	}
	created, err := s.repo.Create(ctx, parcel)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "parcel id already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create parcel")
	}

	if input.TotalCarat.IsPositive() || input.NumberOfStones > 0 {
		s.recorder.Record(ctx, history.Entry{
			ParcelID:    created.ParcelID,
			ActorID:     input.ActorID,
			Type:        enums.HistoryEventAdd,
			Stones:      created.NumberOfStones,
			CtWeight:    created.TotalCarat,
			CtPrice:     created.PricePerCt,
			TotalWeight: created.TotalCarat,
			Comments:    input.Comments,
		})
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, parcelID string) (*models.InventoryParcel, error) {
	parcel, err := s.repo.FindByIDWithChildren(ctx, parcelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "parcel not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parcel")
	}
	return parcel, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.InventoryParcel, error) {
	parcels, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list parcels")
	}
	return parcels, nil
}

func (s *service) Update(ctx context.Context, parcelID string, input UpdateParcelInput) (*models.InventoryParcel, error) {
	parcel, err := s.repo.FindByID(ctx, parcelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "parcel not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parcel")
	}

	if input.PricePerCt != nil {
		if input.PricePerCt.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price per carat cannot be negative")
		}
		parcel.PricePerCt = *input.PricePerCt
	}
	if input.Shape != nil {
		parcel.Shape = input.Shape
	}
	if input.Color != nil {
		parcel.Color = input.Color
	}
	if input.Clarity != nil {
		parcel.Clarity = input.Clarity
	}
	if input.Cut != nil {
		parcel.Cut = input.Cut
	}
	if input.Certificate != nil {
		parcel.Certificate = input.Certificate
	}
	if input.Comments != nil {
		parcel.Comments = input.Comments
	}

	if err := s.repo.Update(ctx, parcel); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update parcel")
	}
	return parcel, nil
}

func (s *service) AdjustStock(ctx context.Context, input AdjustStockInput) (*models.InventoryParcel, error) {
	if input.ParcelID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "parcel id required")
	}
	if input.StonesDelta == 0 && input.CaratDelta.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment cannot be empty")
	}

	var updated *models.InventoryParcel
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		parcel, err := s.repo.ApplyDelta(ctx, tx, input.ParcelID, input.StonesDelta, input.CaratDelta)
		if err != nil {
			return classifyDeltaError(err)
		}
		updated = parcel
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, history.Entry{
		ParcelID:    updated.ParcelID,
		ActorID:     input.ActorID,
		Type:        adjustmentEventType(input.StonesDelta, input.CaratDelta),
		Stones:      input.StonesDelta,
		CtWeight:    input.CaratDelta,
		CtPrice:     updated.PricePerCt,
		TotalWeight: updated.TotalCarat,
		Comments:    input.Comments,
	})
	return updated, nil
}

func (s *service) Split(ctx context.Context, input SplitParcelInput) (*models.InventoryParcel, error) {
	childID := strings.TrimSpace(input.ChildID)
	if input.ParentID == "" || childID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "parent and child parcel ids required")
	}
	if input.ParentID == childID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "child parcel id must differ from parent")
	}
	if input.Stones < 0 || input.CtWeight.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "split amounts cannot be negative")
	}
	if input.Stones == 0 && input.CtWeight.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "split amounts cannot be empty")
	}

	var parent *models.InventoryParcel
	var child *models.InventoryParcel
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		source, err := repo.FindByID(ctx, input.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "parent parcel not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parent parcel")
		}
		if source.ParentParcelID != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "sub-parcels cannot be split further")
		}

		if _, err := repo.FindByID(ctx, childID); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "child parcel id already exists")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check child parcel id")
		}

		updatedParent, err := s.repo.ApplyDelta(ctx, tx, input.ParentID, -input.Stones, input.CtWeight.Neg())
		if err != nil {
			return classifyDeltaError(err)
		}
		parent = updatedParent

		price := source.PricePerCt
		if input.PricePerCt != nil {
			price = *input.PricePerCt
		}
		parentID := source.ParcelID
		created, err := repo.Create(ctx, &models.InventoryParcel{
			ParcelID:       childID,
			ParentParcelID: &parentID,
			TotalCarat:     input.CtWeight,
			NumberOfStones: input.Stones,
			PricePerCt:     price,
			Shape:          source.Shape,
			Color:          source.Color,
			Clarity:        source.Clarity,
			Cut:            source.Cut,
			Certificate:    source.Certificate,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sub-parcel")
		}
		child = created

		return repo.MarkParent(ctx, parentID)
	})
	if err != nil {
		return nil, err
	}

	splitNote := fmt.Sprintf("split to %s", child.ParcelID)
	s.recorder.Record(ctx, history.Entry{
		ParcelID:    parent.ParcelID,
		ActorID:     input.ActorID,
		Type:        enums.HistoryEventReduce,
		Stones:      -input.Stones,
		CtWeight:    input.CtWeight.Neg(),
		CtPrice:     parent.PricePerCt,
		TotalWeight: parent.TotalCarat,
		Comments:    &splitNote,
	})
	sourceNote := fmt.Sprintf("split from %s", parent.ParcelID)
	s.recorder.Record(ctx, history.Entry{
		ParcelID:    child.ParcelID,
		ActorID:     input.ActorID,
		Type:        enums.HistoryEventAdd,
		Stones:      child.NumberOfStones,
		CtWeight:    child.TotalCarat,
		CtPrice:     child.PricePerCt,
		TotalWeight: child.TotalCarat,
		Comments:    &sourceNote,
	})
	return child, nil
}

func (s *service) Delete(ctx context.Context, parcelID string) error {
	parcel, err := s.repo.FindByIDWithChildren(ctx, parcelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "parcel not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parcel")
	}
	if len(parcel.SubParcels) > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "parcel has sub-parcels")
	}
	if parcel.TotalCarat.IsPositive() || parcel.NumberOfStones > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "parcel still has stock")
	}
	if err := s.repo.Delete(ctx, parcelID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete parcel")
	}
	return nil
}

func (s *service) History(ctx context.Context, parcelID string, params pagination.Params) ([]models.ParcelHistoryEntry, error) {
	if _, err := s.repo.FindByID(ctx, parcelID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "parcel not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parcel")
	}
	entries, err := s.entries.ListByParcel(ctx, parcelID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list parcel history")
	}
	return entries, nil
}

func adjustmentEventType(stonesDelta int, caratDelta decimal.Decimal) enums.HistoryEventType {
	switch {
	case stonesDelta >= 0 && !caratDelta.IsNegative():
		return enums.HistoryEventAdd
	case stonesDelta <= 0 && !caratDelta.IsPositive():
		return enums.HistoryEventReduce
	default:
		return enums.HistoryEventManualEdit
	}
}

func classifyDeltaError(err error) error {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "parcel stock too low")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "parcel not found")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust parcel stock")
	}
}
