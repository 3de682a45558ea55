package history

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidhalperin/gemcore-backend/internal/users"
	"github.com/davidhalperin/gemcore-backend/pkg/db/models"
	"github.com/davidhalperin/gemcore-backend/pkg/enums"
	"github.com/davidhalperin/gemcore-backend/pkg/logger"
	"github.com/davidhalperin/gemcore-backend/pkg/metrics"
)

// Entry describes one parcel history record before the actor is resolved.
// Stones and CtWeight are signed: negative for stock leaving the parcel.
type Entry struct {
	ParcelID    string
	ActorID     uuid.UUID
	Type        enums.HistoryEventType
	Stones      int
	CtWeight    decimal.Decimal
	CtPrice     decimal.Decimal
	TotalWeight decimal.Decimal
	OrderID     *uuid.UUID
	DeductionID *uuid.UUID
	Comments    *string
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Recorder writes parcel history entries. Writes are best-effort: a failure is
// logged and counted but never surfaced to the caller, so an audit problem
// cannot undo an inventory movement that already committed.
type Recorder struct {
	repo    Repository
	users   userLookup
	metrics *metrics.DeductionMetrics
	logg    *logger.Logger
}

// NewRecorder builds a history recorder.
func NewRecorder(repo Repository, users userLookup, m *metrics.DeductionMetrics, logg *logger.Logger) (*Recorder, error) {
	if repo == nil {
		return nil, fmt.Errorf("history repository required")
	}
	return &Recorder{repo: repo, users: users, metrics: m, logg: logg}, nil
}

// Record persists the entry, resolving the actor's display name first.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if !entry.Type.IsValid() {
		r.fail(ctx, entry, fmt.Errorf("invalid history event type %q", entry.Type))
		return
	}

	row := &models.ParcelHistoryEntry{
		ParcelID:    entry.ParcelID,
		Employee:    r.resolveEmployee(ctx, entry.ActorID),
		Type:        entry.Type,
		Stones:      entry.Stones,
		CtWeight:    entry.CtWeight,
		CtPrice:     entry.CtPrice,
		TotalWeight: entry.TotalWeight,
		OrderID:     entry.OrderID,
		DeductionID: entry.DeductionID,
		Comments:    entry.Comments,
	}

	if _, err := r.repo.Create(ctx, row); err != nil {
		r.fail(ctx, entry, err)
		return
	}
	r.metrics.IncHistoryWrite()
}

// ListByOrder returns every history entry written for an order's deductions,
// oldest first.
func (r *Recorder) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ParcelHistoryEntry, error) {
	return r.repo.ListByOrder(ctx, orderID)
}

// Erase removes the history rows tied to a deduction, typically just before a
// restoration entry replaces them. Best-effort like Record.
func (r *Recorder) Erase(ctx context.Context, deductionID uuid.UUID) {
	if _, err := r.repo.DeleteByDeductionID(ctx, deductionID); err != nil {
		if r.logg != nil {
			r.logg.Error(r.logg.WithField(ctx, "deduction_id", deductionID.String()), "delete parcel history for deduction", err)
		}
		r.metrics.IncHistoryFailure()
	}
}

func (r *Recorder) resolveEmployee(ctx context.Context, actorID uuid.UUID) string {
	if actorID == uuid.Nil || r.users == nil {
		return "system"
	}
	user, err := r.users.FindByID(ctx, actorID)
	if err != nil {
		return actorID.String()
	}
	return users.DisplayName(user)
}

func (r *Recorder) fail(ctx context.Context, entry Entry, err error) {
	if r.logg != nil {
		r.logg.Error(r.logg.WithParcelID(ctx, entry.ParcelID), "write parcel history entry", err)
	}
	r.metrics.IncHistoryFailure()
}
