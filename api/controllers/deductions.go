package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidhalperin/gemcore-backend/api/responses"
	"github.com/davidhalperin/gemcore-backend/api/validators"
	"github.com/davidhalperin/gemcore-backend/internal/deductions"
	"github.com/davidhalperin/gemcore-backend/pkg/db/models"
	"github.com/davidhalperin/gemcore-backend/pkg/enums"
	pkgerrors "github.com/davidhalperin/gemcore-backend/pkg/errors"
	"github.com/davidhalperin/gemcore-backend/pkg/logger"
)

type deductionCreateRequest struct {
	OrderID           string  `json:"order_id" validate:"required"`
	Type              string  `json:"type" validate:"required"`
	ParcelID          *string `json:"parcel_id"`
	CtWeight          string  `json:"ct_weight" validate:"required"`
	Stones            flexInt `json:"stones"`
	PricePerCt        *string `json:"price_per_ct"`
	Comments          *string `json:"comments"`
	IncludeInItemCost *bool   `json:"include_in_item_cost"`
}

func (req deductionCreateRequest) toInput(actorID uuid.UUID) (deductions.CreateInput, error) {
	orderID, err := parsePathUUID(req.OrderID, "order_id")
	if err != nil {
		return deductions.CreateInput{}, err
	}
	kind, err := enums.ParseDeductionType(req.Type)
	if err != nil {
		return deductions.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse deduction type")
	}
	ctWeight, err := parseDecimalField(req.CtWeight, "ct_weight")
	if err != nil {
		return deductions.CreateInput{}, err
	}
	// Omitted for parcel-backed deductions: the engine snapshots the
	// parcel's price at deduction time.
	price, err := parseOptionalDecimal(req.PricePerCt, "price_per_ct")
	if err != nil {
		return deductions.CreateInput{}, err
	}

	var parcelID *string
	if req.ParcelID != nil {
		sanitized := validators.SanitizeString(*req.ParcelID, maxParcelIDLen)
		if sanitized != "" {
			parcelID = &sanitized
		}
	}

	return deductions.CreateInput{
		OrderID:           orderID,
		Type:              kind,
		ParcelID:          parcelID,
		CtWeight:          ctWeight,
		Stones:            int(req.Stones),
		PricePerCt:        price,
		Comments:          req.Comments,
		IncludeInItemCost: req.IncludeInItemCost,
		ActorID:           actorID,
	}, nil
}

type deductionUpdateRequest struct {
	CtWeight   *string  `json:"ct_weight"`
	Stones     *flexInt `json:"stones"`
	PricePerCt *string  `json:"price_per_ct"`
	Comments   *string  `json:"comments"`
}

func (req deductionUpdateRequest) toInput(actorID uuid.UUID) (deductions.UpdateInput, error) {
	ctWeight, err := parseOptionalDecimal(req.CtWeight, "ct_weight")
	if err != nil {
		return deductions.UpdateInput{}, err
	}
	price, err := parseOptionalDecimal(req.PricePerCt, "price_per_ct")
	if err != nil {
		return deductions.UpdateInput{}, err
	}

	var stones *int
	if req.Stones != nil {
		value := int(*req.Stones)
		stones = &value
	}

	return deductions.UpdateInput{
		CtWeight:   ctWeight,
		Stones:     stones,
		PricePerCt: price,
		Comments:   req.Comments,
		ActorID:    actorID,
	}, nil
}

type deductionBatchDeleteRequest struct {
	IDs   []string `json:"ids" validate:"required,min=1"`
	Force bool     `json:"force"`
}

type deductionIncludeRequest struct {
	Include bool `json:"include"`
}

type deductionResponse struct {
	ID                uuid.UUID           `json:"id"`
	OrderID           uuid.UUID           `json:"order_id"`
	Type              enums.DeductionType `json:"type"`
	ParcelID          *string             `json:"parcel_id,omitempty"`
	CtWeight          decimal.Decimal     `json:"ct_weight"`
	Stones            int                 `json:"stones"`
	PricePerCt        decimal.Decimal     `json:"price_per_ct"`
	TotalPrice        decimal.Decimal     `json:"total_price"`
	Comments          *string             `json:"comments,omitempty"`
	IncludeInItemCost bool                `json:"include_in_item_cost"`
	AddedToStock      bool                `json:"added_to_stock"`
	CreatedBy         uuid.UUID           `json:"created_by"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func deductionResponseFromModel(row *models.DiamondDeduction) deductionResponse {
	return deductionResponse{
		ID:                row.ID,
		OrderID:           row.OrderID,
		Type:              row.Type,
		ParcelID:          row.ParcelID,
		CtWeight:          row.CtWeight,
		Stones:            row.Stones,
		PricePerCt:        row.PricePerCt,
		TotalPrice:        row.TotalPrice,
		Comments:          row.Comments,
		IncludeInItemCost: row.IncludeInItemCost,
		AddedToStock:      row.AddedToStock,
		CreatedBy:         row.CreatedBy,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

// DeductionCreate books diamonds against an order. Center and side deductions
// move parcel stock in the same transaction; manual ones are cost-only.
func DeductionCreate(svc deductions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deduction service unavailable"))
			return
		}

		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body deductionCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput(actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, deductionResponseFromModel(created))
	}
}

func DeductionGet(svc deductions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deduction service unavailable"))
			return
		}

		id, err := parsePathUUID(chi.URLParam(r, "deductionId"), "deduction_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, deductionResponseFromModel(row))
	}
}

// OrderDeductionHistory returns the audit entries the deduction engine has
// written for an order, oldest first.
func OrderDeductionHistory(svc deductions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deduction service unavailable"))
			return
		}

		orderID, err := parsePathUUID(chi.URLParam(r, "orderId"), "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.HistoryByOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]historyEntryResponse, 0, len(entries))
		for _, entry := range entries {
			out = append(out, historyEntryFromModel(entry))
		}
		responses.WriteSuccess(w, out)
	}
}

func DeductionListByOrder(svc deductions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deduction service unavailable"))
			return
		}

		orderID, err := parsePathUUID(chi.URLParam(r, "orderId"), "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListByOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]deductionResponse, 0, len(rows))
		for i := range rows {
			out = append(out, deductionResponseFromModel(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func DeductionUpdate(svc deductions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deduction service unavailable"))
			return
		}

		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := parsePathUUID(chi.URLParam(r, "deductionId"), "deduction_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body deductionUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput(actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, deductionResponseFromModel(updated))
	}
}

// DeductionDelete removes a deduction row. Parcel-backed deductions that were
// never restored need force=true; deleting them writes the stock off.
func DeductionDelete(svc deductions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deduction service unavailable"))
			return
		}

		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := parsePathUUID(chi.URLParam(r, "deductionId"), "deduction_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		force := r.URL.Query().Get("force") == "true"
		if err := svc.Delete(r.Context(), id, force, actorID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func DeductionBatchDelete(svc deductions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deduction service unavailable"))
			return
		}

		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body deductionBatchDeleteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ids := make([]uuid.UUID, 0, len(body.IDs))
		for _, raw := range body.IDs {
			id, err := parsePathUUID(raw, "ids")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			ids = append(ids, id)
		}

		if err := svc.BatchDelete(r.Context(), ids, body.Force, actorID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func DeductionSetIncludeInCost(svc deductions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deduction service unavailable"))
			return
		}

		id, err := parsePathUUID(chi.URLParam(r, "deductionId"), "deduction_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body deductionIncludeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.SetIncludeInCost(r.Context(), id, body.Include)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, deductionResponseFromModel(updated))
	}
}

// DeductionRestore puts the deducted stones back on the parcel and collapses
// the deduction's history rows into a single restoration entry.
func DeductionRestore(svc deductions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deduction service unavailable"))
			return
		}

		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := parsePathUUID(chi.URLParam(r, "deductionId"), "deduction_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		restored, err := svc.RestoreToStock(r.Context(), id, actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, deductionResponseFromModel(restored))
	}
}
