package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidhalperin/gemcore-backend/api/responses"
	"github.com/davidhalperin/gemcore-backend/api/validators"
	"github.com/davidhalperin/gemcore-backend/internal/inventory"
	"github.com/davidhalperin/gemcore-backend/pkg/db/models"
	"github.com/davidhalperin/gemcore-backend/pkg/enums"
	pkgerrors "github.com/davidhalperin/gemcore-backend/pkg/errors"
	"github.com/davidhalperin/gemcore-backend/pkg/logger"
	"github.com/davidhalperin/gemcore-backend/pkg/pagination"
)

const maxParcelIDLen = 64

type parcelCreateRequest struct {
	ParcelID       string  `json:"parcel_id" validate:"required"`
	TotalCarat     string  `json:"total_carat" validate:"required"`
	NumberOfStones flexInt `json:"number_of_stones"`
	PricePerCt     string  `json:"price_per_ct" validate:"required"`
	Shape          *string `json:"shape"`
	Color          *string `json:"color"`
	Clarity        *string `json:"clarity"`
	Cut            *string `json:"cut"`
	Certificate    *string `json:"certificate"`
	Comments       *string `json:"comments"`
}

func (req parcelCreateRequest) toInput(actorID uuid.UUID) (inventory.CreateParcelInput, error) {
	carat, err := parseDecimalField(req.TotalCarat, "total_carat")
	if err != nil {
		return inventory.CreateParcelInput{}, err
	}
	price, err := parseDecimalField(req.PricePerCt, "price_per_ct")
	if err != nil {
		return inventory.CreateParcelInput{}, err
	}
	return inventory.CreateParcelInput{
		ParcelID:       validators.SanitizeString(req.ParcelID, maxParcelIDLen),
		TotalCarat:     carat,
		NumberOfStones: int(req.NumberOfStones),
		PricePerCt:     price,
		Shape:          req.Shape,
		Color:          req.Color,
		Clarity:        req.Clarity,
		Cut:            req.Cut,
		Certificate:    req.Certificate,
		Comments:       req.Comments,
		ActorID:        actorID,
	}, nil
}

type parcelUpdateRequest struct {
	PricePerCt  *string `json:"price_per_ct"`
	Shape       *string `json:"shape"`
	Color       *string `json:"color"`
	Clarity     *string `json:"clarity"`
	Cut         *string `json:"cut"`
	Certificate *string `json:"certificate"`
	Comments    *string `json:"comments"`
}

func (req parcelUpdateRequest) toInput() (inventory.UpdateParcelInput, error) {
	price, err := parseOptionalDecimal(req.PricePerCt, "price_per_ct")
	if err != nil {
		return inventory.UpdateParcelInput{}, err
	}
	return inventory.UpdateParcelInput{
		PricePerCt:  price,
		Shape:       req.Shape,
		Color:       req.Color,
		Clarity:     req.Clarity,
		Cut:         req.Cut,
		Certificate: req.Certificate,
		Comments:    req.Comments,
	}, nil
}

type parcelAdjustRequest struct {
	StonesDelta flexInt `json:"stones_delta"`
	CaratDelta  string  `json:"carat_delta" validate:"required"`
	Comments    *string `json:"comments"`
}

type parcelSplitRequest struct {
	ChildID    string  `json:"child_parcel_id" validate:"required"`
	Stones     flexInt `json:"stones" validate:"required"`
	CtWeight   string  `json:"ct_weight" validate:"required"`
	PricePerCt *string `json:"price_per_ct"`
}

type parcelResponse struct {
	ParcelID       string           `json:"parcel_id"`
	ParentParcelID *string          `json:"parent_parcel_id,omitempty"`
	IsParent       bool             `json:"is_parent"`
	TotalCarat     decimal.Decimal  `json:"total_carat"`
	NumberOfStones int              `json:"number_of_stones"`
	PricePerCt     decimal.Decimal  `json:"price_per_ct"`
	Shape          *string          `json:"shape,omitempty"`
	Color          *string          `json:"color,omitempty"`
	Clarity        *string          `json:"clarity,omitempty"`
	Cut            *string          `json:"cut,omitempty"`
	Certificate    *string          `json:"certificate,omitempty"`
	Comments       *string          `json:"comments,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	SubParcels     []parcelResponse `json:"sub_parcels,omitempty"`
}

func parcelResponseFromModel(parcel *models.InventoryParcel) parcelResponse {
	resp := parcelResponse{
		ParcelID:       parcel.ParcelID,
		ParentParcelID: parcel.ParentParcelID,
		IsParent:       parcel.IsParent,
		TotalCarat:     parcel.TotalCarat,
		NumberOfStones: parcel.NumberOfStones,
		PricePerCt:     parcel.PricePerCt,
		Shape:          parcel.Shape,
		Color:          parcel.Color,
		Clarity:        parcel.Clarity,
		Cut:            parcel.Cut,
		Certificate:    parcel.Certificate,
		Comments:       parcel.Comments,
		CreatedAt:      parcel.CreatedAt,
		UpdatedAt:      parcel.UpdatedAt,
	}
	for i := range parcel.SubParcels {
		resp.SubParcels = append(resp.SubParcels, parcelResponseFromModel(&parcel.SubParcels[i]))
	}
	return resp
}

type historyEntryResponse struct {
	ID          uuid.UUID              `json:"id"`
	ParcelID    string                 `json:"parcel_id"`
	Employee    string                 `json:"employee"`
	Type        enums.HistoryEventType `json:"type"`
	Stones      int                    `json:"stones"`
	CtWeight    decimal.Decimal        `json:"ct_weight"`
	CtPrice     decimal.Decimal        `json:"ct_price"`
	TotalWeight decimal.Decimal        `json:"total_weight"`
	OrderID     *uuid.UUID             `json:"order_id,omitempty"`
	DeductionID *uuid.UUID             `json:"deduction_id,omitempty"`
	Comments    *string                `json:"comments,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

func historyEntryFromModel(entry models.ParcelHistoryEntry) historyEntryResponse {
	return historyEntryResponse{
		ID:          entry.ID,
		ParcelID:    entry.ParcelID,
		Employee:    entry.Employee,
		Type:        entry.Type,
		Stones:      entry.Stones,
		CtWeight:    entry.CtWeight,
		CtPrice:     entry.CtPrice,
		TotalWeight: entry.TotalWeight,
		OrderID:     entry.OrderID,
		DeductionID: entry.DeductionID,
		Comments:    entry.Comments,
		CreatedAt:   entry.CreatedAt,
	}
}

func parcelIDParam(r *http.Request) (string, error) {
	id := validators.SanitizeString(chi.URLParam(r, "parcelId"), maxParcelIDLen)
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "parcel id required")
	}
	return id, nil
}

// ParcelCreate registers a new parcel; any opening stock is written to the
// history log as the first entry.
func ParcelCreate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body parcelCreateRequest
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
		responses.WriteSuccessStatus(w, http.StatusCreated, parcelResponseFromModel(created))
	}
}

func ParcelGet(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		parcelID, err := parcelIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		parcel, err := svc.Get(r.Context(), parcelID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, parcelResponseFromModel(parcel))
	}
}

func ParcelList(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		filter := inventory.ListFilter{
			Shape:       validators.SanitizeString(query.Get("shape"), 32),
			ParentsOnly: query.Get("parents_only") == "true",
			InStockOnly: query.Get("in_stock_only") == "true",
			After:       validators.SanitizeString(query.Get("after"), maxParcelIDLen),
			Limit:       limit,
		}

		parcels, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]parcelResponse, 0, len(parcels))
		for i := range parcels {
			out = append(out, parcelResponseFromModel(&parcels[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func ParcelUpdate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		parcelID, err := parcelIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body parcelUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), parcelID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, parcelResponseFromModel(updated))
	}
}

// ParcelAdjust applies a signed manual stock movement. Negative deltas are
// rejected downstream when they would overdraw the parcel.
func ParcelAdjust(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		parcelID, err := parcelIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body parcelAdjustRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		caratDelta, err := parseDecimalField(body.CaratDelta, "carat_delta")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		parcel, err := svc.AdjustStock(r.Context(), inventory.AdjustStockInput{
			ParcelID:    parcelID,
			StonesDelta: int(body.StonesDelta),
			CaratDelta:  caratDelta,
			Comments:    body.Comments,
			ActorID:     actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, parcelResponseFromModel(parcel))
	}
}

func ParcelSplit(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		parentID, err := parcelIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body parcelSplitRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctWeight, err := parseDecimalField(body.CtWeight, "ct_weight")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		price, err := parseOptionalDecimal(body.PricePerCt, "price_per_ct")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		child, err := svc.Split(r.Context(), inventory.SplitParcelInput{
			ParentID:   parentID,
			ChildID:    validators.SanitizeString(body.ChildID, maxParcelIDLen),
			Stones:     int(body.Stones),
			CtWeight:   ctWeight,
			PricePerCt: price,
			ActorID:    actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, parcelResponseFromModel(child))
	}
}

func ParcelDelete(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		parcelID, err := parcelIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), parcelID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func ParcelHistory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		parcelID, err := parcelIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.History(r.Context(), parcelID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
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
