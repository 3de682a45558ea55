package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/davidhalperin/gemcore-backend/pkg/db"
	"github.com/davidhalperin/gemcore-backend/pkg/db/models"
	"github.com/davidhalperin/gemcore-backend/pkg/enums"
	pkgerrors "github.com/davidhalperin/gemcore-backend/pkg/errors"
	"github.com/davidhalperin/gemcore-backend/pkg/pagination"
)

type costRecalculator interface {
	Recalculate(ctx context.Context, orderID uuid.UUID) (*models.OrderCosts, error)
}

// CreateOrderInput carries the fields for a new order.
type CreateOrderInput struct {
	OrderNumber  string
	CustomerName string
	Notes        *string
	ActorID      uuid.UUID
}

// UpdateOrderInput carries the editable header fields.
type UpdateOrderInput struct {
	CustomerName *string
	Status       *enums.OrderStatus
	Notes        *string
}

// ItemInput carries the fields for an order item.
type ItemInput struct {
	Name        string
	Metal       *string
	RingSize    *string
	Qty         int
	SalePrice   decimal.Decimal
	Description *string
}

// CastingLineInput carries the fields for one casting charge.
type CastingLineInput struct {
	Description string
	Metal       *string
	WeightGrams decimal.Decimal
	Price       decimal.Decimal
}

// Service defines order management operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, params pagination.Params) ([]models.Order, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateOrderInput) (*models.Order, error)

	AddItem(ctx context.Context, orderID uuid.UUID, input ItemInput) (*models.OrderItem, error)
	UpdateItem(ctx context.Context, orderID, itemID uuid.UUID, input ItemInput) (*models.OrderItem, error)
	RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) error

	AddCastingLine(ctx context.Context, orderID uuid.UUID, input CastingLineInput) (*models.CastingLine, error)
	RemoveCastingLine(ctx context.Context, orderID, lineID uuid.UUID) error
}

type service struct {
	repo  Repository
	costs costRecalculator
}

// NewService builds an order management service.
func NewService(repo Repository, costs costRecalculator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if costs == nil {
		return nil, fmt.Errorf("cost recalculator required")
	}
	return &service{repo: repo, costs: costs}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	number := strings.TrimSpace(input.OrderNumber)
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	if strings.TrimSpace(input.CustomerName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name required")
	}

	if _, err := s.repo.FindByNumber(ctx, number); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order number already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order number")
	}

	order := &models.Order{
		OrderNumber:  number,
		CustomerName: strings.TrimSpace(input.CustomerName),
		Status:       enums.OrderStatusDraft,
		Notes:        input.Notes,
		CreatedBy:    input.ActorID,
	}
	created, err := s.repo.Create(ctx, order)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "order number already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.load(ctx, id)
}

func (s *service) List(ctx context.Context, params pagination.Params) ([]models.Order, error) {
	list, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateOrderInput) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.CustomerName != nil {
		name := strings.TrimSpace(*input.CustomerName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name cannot be empty")
		}
		order.CustomerName = name
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
		}
		order.Status = *input.Status
	}
	if input.Notes != nil {
		order.Notes = input.Notes
	}

	if err := s.repo.Update(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}
	return order, nil
}

func (s *service) AddItem(ctx context.Context, orderID uuid.UUID, input ItemInput) (*models.OrderItem, error) {
	if _, err := s.load(ctx, orderID); err != nil {
		return nil, err
	}
	if err := validateItem(input); err != nil {
		return nil, err
	}

	item := &models.OrderItem{
		OrderID:     orderID,
		Name:        strings.TrimSpace(input.Name),
		Metal:       input.Metal,
		RingSize:    input.RingSize,
		Qty:         input.Qty,
		SalePrice:   input.SalePrice,
		Description: input.Description,
	}
	created, err := s.repo.CreateItem(ctx, item)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order item")
	}
	return created, nil
}

func (s *service) UpdateItem(ctx context.Context, orderID, itemID uuid.UUID, input ItemInput) (*models.OrderItem, error) {
	item, err := s.loadItem(ctx, orderID, itemID)
	if err != nil {
		return nil, err
	}
	if err := validateItem(input); err != nil {
		return nil, err
	}

	item.Name = strings.TrimSpace(input.Name)
	item.Metal = input.Metal
	item.RingSize = input.RingSize
	item.Qty = input.Qty
	item.SalePrice = input.SalePrice
	item.Description = input.Description

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order item")
	}
	return item, nil
}

func (s *service) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) error {
	if _, err := s.loadItem(ctx, orderID, itemID); err != nil {
		return err
	}
	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order item")
	}
	return nil
}

func (s *service) AddCastingLine(ctx context.Context, orderID uuid.UUID, input CastingLineInput) (*models.CastingLine, error) {
	if _, err := s.load(ctx, orderID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description required")
	}
	if input.Price.IsNegative() || input.WeightGrams.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "casting amounts cannot be negative")
	}

	line := &models.CastingLine{
		OrderID:     orderID,
		Description: strings.TrimSpace(input.Description),
		Metal:       input.Metal,
		WeightGrams: input.WeightGrams,
		Price:       input.Price,
	}
	created, err := s.repo.CreateCastingLine(ctx, line)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create casting line")
	}

	if _, err := s.costs.Recalculate(ctx, orderID); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) RemoveCastingLine(ctx context.Context, orderID, lineID uuid.UUID) error {
	line, err := s.repo.FindCastingLine(ctx, lineID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "casting line not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load casting line")
	}
	if line.OrderID != orderID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "casting line not found")
	}

	if err := s.repo.DeleteCastingLine(ctx, lineID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete casting line")
	}

	if _, err := s.costs.Recalculate(ctx, orderID); err != nil {
		return err
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) loadItem(ctx context.Context, orderID, itemID uuid.UUID) (*models.OrderItem, error) {
	item, err := s.repo.FindItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
	}
	if item.OrderID != orderID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
	}
	return item, nil
}

func validateItem(input ItemInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item name required")
	}
	if input.Qty < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be at least 1")
	}
	if input.SalePrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale price cannot be negative")
	}
	return nil
}
