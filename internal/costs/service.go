package costs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/davidhalperin/gemcore-backend/pkg/config"
	"github.com/davidhalperin/gemcore-backend/pkg/db/models"
	pkgerrors "github.com/davidhalperin/gemcore-backend/pkg/errors"
)

// Service computes and caches the cost breakdown of an order.
type Service interface {
	Recalculate(ctx context.Context, orderID uuid.UUID) (*models.OrderCosts, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.OrderCosts, error)
}

type service struct {
	repo  Repository
	labor config.LaborConfig
}

// NewService builds the cost aggregator.
func NewService(repo Repository, labor config.LaborConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("costs repository required")
	}
	return &service{repo: repo, labor: labor}, nil
}

// Recalculate rebuilds the order's cost row from scratch. The three subtotals
// come from independent tables, so they are gathered concurrently.
func (s *service) Recalculate(ctx context.Context, orderID uuid.UUID) (*models.OrderCosts, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	exists, err := s.repo.OrderExists(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	var (
		casting decimal.Decimal
		diamond decimal.Decimal
		counts  LaborCounts
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var sumErr error
		casting, sumErr = s.repo.SumCasting(groupCtx, orderID)
		return sumErr
	})
	group.Go(func() error {
		var sumErr error
		diamond, sumErr = s.repo.SumDiamond(groupCtx, orderID)
		return sumErr
	})
	group.Go(func() error {
		var countErr error
		counts, countErr = s.repo.LaborCounts(groupCtx, orderID)
		return countErr
	})
	if err := group.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate order costs")
	}

	row := &models.OrderCosts{
		OrderID: orderID,
		Casting: casting.Round(2),
		Diamond: diamond.Round(2),
		Labor:   s.laborCharge(counts),
	}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store order costs")
	}
	return row, nil
}

// Get returns the cached breakdown, computing it on first access.
func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.OrderCosts, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	row, err := s.repo.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.Recalculate(ctx, orderID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order costs")
	}
	return row, nil
}

// laborCharge applies the bench formula: flat base, a per-stone rate for side
// stones, and a setup fee when the order carries a center stone.
func (s *service) laborCharge(counts LaborCounts) decimal.Decimal {
	charge := s.labor.Base()
	charge = charge.Add(s.labor.SideStoneRate().Mul(decimal.NewFromInt(int64(counts.SideStones))))
	if counts.HasCenter {
		charge = charge.Add(s.labor.CenterFee())
	}
	return charge.Round(2)
}
