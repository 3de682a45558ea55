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
	"github.com/davidhalperin/gemcore-backend/internal/orders"
	"github.com/davidhalperin/gemcore-backend/pkg/db/models"
	"github.com/davidhalperin/gemcore-backend/pkg/enums"
	pkgerrors "github.com/davidhalperin/gemcore-backend/pkg/errors"
	"github.com/davidhalperin/gemcore-backend/pkg/logger"
	"github.com/davidhalperin/gemcore-backend/pkg/pagination"
)

type orderCreateRequest struct {
	OrderNumber  string  `json:"order_number" validate:"required"`
	CustomerName string  `json:"customer_name" validate:"required"`
	Notes        *string `json:"notes"`
}

type orderUpdateRequest struct {
	CustomerName *string `json:"customer_name"`
	Status       *string `json:"status"`
	Notes        *string `json:"notes"`
}

func (req orderUpdateRequest) toInput() (orders.UpdateOrderInput, error) {
	input := orders.UpdateOrderInput{
		CustomerName: req.CustomerName,
		Notes:        req.Notes,
	}
	if req.Status != nil {
		status, err := enums.ParseOrderStatus(*req.Status)
		if err != nil {
			return orders.UpdateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse order status")
		}
		input.Status = &status
	}
	return input, nil
}

type orderItemRequest struct {
	Name        string  `json:"name" validate:"required"`
	Metal       *string `json:"metal"`
	RingSize    *string `json:"ring_size"`
	Qty         flexInt `json:"qty"`
	SalePrice   string  `json:"sale_price" validate:"required"`
	Description *string `json:"description"`
}

func (req orderItemRequest) toInput() (orders.ItemInput, error) {
	price, err := parseDecimalField(req.SalePrice, "sale_price")
	if err != nil {
		return orders.ItemInput{}, err
	}
	qty := int(req.Qty)
	if qty == 0 {
		qty = 1
	}
	return orders.ItemInput{
		Name:        req.Name,
		Metal:       req.Metal,
		RingSize:    req.RingSize,
		Qty:         qty,
		SalePrice:   price,
		Description: req.Description,
	}, nil
}

type castingLineRequest struct {
	Description string  `json:"description" validate:"required"`
	Metal       *string `json:"metal"`
	WeightGrams *string `json:"weight_grams"`
	Price       string  `json:"price" validate:"required"`
}

func (req castingLineRequest) toInput() (orders.CastingLineInput, error) {
	price, err := parseDecimalField(req.Price, "price")
	if err != nil {
		return orders.CastingLineInput{}, err
	}
	weight := decimal.Zero
	if req.WeightGrams != nil {
		weight, err = parseDecimalField(*req.WeightGrams, "weight_grams")
		if err != nil {
			return orders.CastingLineInput{}, err
		}
	}
	return orders.CastingLineInput{
		Description: req.Description,
		Metal:       req.Metal,
		WeightGrams: weight,
		Price:       price,
	}, nil
}

type orderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Metal       *string         `json:"metal,omitempty"`
	RingSize    *string         `json:"ring_size,omitempty"`
	Qty         int             `json:"qty"`
	SalePrice   decimal.Decimal `json:"sale_price"`
	Description *string         `json:"description,omitempty"`
}

type castingLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	Metal       *string         `json:"metal,omitempty"`
	WeightGrams decimal.Decimal `json:"weight_grams"`
	Price       decimal.Decimal `json:"price"`
}

type orderResponse struct {
	ID           uuid.UUID             `json:"id"`
	OrderNumber  string                `json:"order_number"`
	CustomerName string                `json:"customer_name"`
	Status       enums.OrderStatus     `json:"status"`
	Notes        *string               `json:"notes,omitempty"`
	CreatedBy    uuid.UUID             `json:"created_by"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	Items        []orderItemResponse   `json:"items,omitempty"`
	CastingLines []castingLineResponse `json:"casting_lines,omitempty"`
}

func orderItemResponseFromModel(item *models.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:          item.ID,
		Name:        item.Name,
		Metal:       item.Metal,
		RingSize:    item.RingSize,
		Qty:         item.Qty,
		SalePrice:   item.SalePrice,
		Description: item.Description,
	}
}

func castingLineResponseFromModel(line *models.CastingLine) castingLineResponse {
	return castingLineResponse{
		ID:          line.ID,
		Description: line.Description,
		Metal:       line.Metal,
		WeightGrams: line.WeightGrams,
		Price:       line.Price,
	}
}

func orderResponseFromModel(order *models.Order) orderResponse {
	resp := orderResponse{
		ID:           order.ID,
		OrderNumber:  order.OrderNumber,
		CustomerName: order.CustomerName,
		Status:       order.Status,
		Notes:        order.Notes,
		CreatedBy:    order.CreatedBy,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
	for i := range order.Items {
		resp.Items = append(resp.Items, orderItemResponseFromModel(&order.Items[i]))
	}
	for i := range order.CastingLines {
		resp.CastingLines = append(resp.CastingLines, castingLineResponseFromModel(&order.CastingLines[i]))
	}
	return resp
}

func OrderCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body orderCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), orders.CreateOrderInput{
			OrderNumber:  body.OrderNumber,
			CustomerName: body.CustomerName,
			Notes:        body.Notes,
			ActorID:      actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, orderResponseFromModel(created))
	}
}

func OrderGet(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parsePathUUID(chi.URLParam(r, "orderId"), "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderResponseFromModel(order))
	}
}

func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]orderResponse, 0, len(list))
		for i := range list {
			out = append(out, orderResponseFromModel(&list[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func OrderUpdate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parsePathUUID(chi.URLParam(r, "orderId"), "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body orderUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), orderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderResponseFromModel(updated))
	}
}

func OrderItemAdd(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parsePathUUID(chi.URLParam(r, "orderId"), "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body orderItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.AddItem(r.Context(), orderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, orderItemResponseFromModel(item))
	}
}

func OrderItemUpdate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parsePathUUID(chi.URLParam(r, "orderId"), "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := parsePathUUID(chi.URLParam(r, "itemId"), "item_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body orderItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.UpdateItem(r.Context(), orderID, itemID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderItemResponseFromModel(item))
	}
}

func OrderItemRemove(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parsePathUUID(chi.URLParam(r, "orderId"), "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := parsePathUUID(chi.URLParam(r, "itemId"), "item_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveItem(r.Context(), orderID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// CastingLineAdd books a casting charge; the order's cost cache is rebuilt
// before the response goes out.
func CastingLineAdd(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parsePathUUID(chi.URLParam(r, "orderId"), "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body castingLineRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := svc.AddCastingLine(r.Context(), orderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, castingLineResponseFromModel(line))
	}
}

func CastingLineRemove(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parsePathUUID(chi.URLParam(r, "orderId"), "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := parsePathUUID(chi.URLParam(r, "lineId"), "line_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveCastingLine(r.Context(), orderID, lineID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
