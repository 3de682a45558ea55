package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidhalperin/gemcore-backend/api/responses"
	"github.com/davidhalperin/gemcore-backend/internal/costs"
	"github.com/davidhalperin/gemcore-backend/pkg/db/models"
	pkgerrors "github.com/davidhalperin/gemcore-backend/pkg/errors"
	"github.com/davidhalperin/gemcore-backend/pkg/logger"
)

type orderCostsResponse struct {
	OrderID   uuid.UUID       `json:"order_id"`
	Casting   decimal.Decimal `json:"casting"`
	Diamond   decimal.Decimal `json:"diamond"`
	Labor     decimal.Decimal `json:"labor"`
	Total     decimal.Decimal `json:"total"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func orderCostsResponseFromModel(row *models.OrderCosts) orderCostsResponse {
	return orderCostsResponse{
		OrderID:   row.OrderID,
		Casting:   row.Casting,
		Diamond:   row.Diamond,
		Labor:     row.Labor,
		Total:     row.Total(),
		UpdatedAt: row.UpdatedAt,
	}
}

func OrderCostsGet(svc costs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "costs service unavailable"))
			return
		}

		orderID, err := parsePathUUID(chi.URLParam(r, "orderId"), "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderCostsResponseFromModel(row))
	}
}

// OrderCostsRecalculate forces a rebuild of the cached breakdown. Useful when
// a background write failed and the cache is suspected stale.
func OrderCostsRecalculate(svc costs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "costs service unavailable"))
			return
		}

		orderID, err := parsePathUUID(chi.URLParam(r, "orderId"), "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.Recalculate(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderCostsResponseFromModel(row))
	}
}
