package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidhalperin/gemcore-backend/api/middleware"
	"github.com/davidhalperin/gemcore-backend/internal/deductions"
	"github.com/davidhalperin/gemcore-backend/pkg/db/models"
	"github.com/davidhalperin/gemcore-backend/pkg/enums"
	pkgerrors "github.com/davidhalperin/gemcore-backend/pkg/errors"
)

type stubDeductionService struct {
	created  *deductions.CreateInput
	row      *models.DiamondDeduction
	err      error
	restored []uuid.UUID
	deleted  []uuid.UUID
	forced   []bool
}

func (s *stubDeductionService) Create(_ context.Context, input deductions.CreateInput) (*models.DiamondDeduction, error) {
	s.created = &input
	return s.row, s.err
}

func (s *stubDeductionService) Get(_ context.Context, _ uuid.UUID) (*models.DiamondDeduction, error) {
	return s.row, s.err
}

func (s *stubDeductionService) ListByOrder(_ context.Context, _ uuid.UUID) ([]models.DiamondDeduction, error) {
	if s.row == nil {
		return nil, s.err
	}
	return []models.DiamondDeduction{*s.row}, s.err
}

func (s *stubDeductionService) HistoryByOrder(_ context.Context, _ uuid.UUID) ([]models.ParcelHistoryEntry, error) {
	return nil, s.err
}

func (s *stubDeductionService) Update(_ context.Context, _ uuid.UUID, _ deductions.UpdateInput) (*models.DiamondDeduction, error) {
	return s.row, s.err
}

func (s *stubDeductionService) Delete(_ context.Context, id uuid.UUID, force bool, _ uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	s.forced = append(s.forced, force)
	return s.err
}

func (s *stubDeductionService) BatchDelete(_ context.Context, ids []uuid.UUID, force bool, _ uuid.UUID) error {
	s.deleted = append(s.deleted, ids...)
	s.forced = append(s.forced, force)
	return s.err
}

func (s *stubDeductionService) SetIncludeInCost(_ context.Context, _ uuid.UUID, _ bool) (*models.DiamondDeduction, error) {
	return s.row, s.err
}

func (s *stubDeductionService) RestoreToStock(_ context.Context, id uuid.UUID, _ uuid.UUID) (*models.DiamondDeduction, error) {
	s.restored = append(s.restored, id)
	return s.row, s.err
}

func authedRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	ctx := middleware.WithUserID(req.Context(), uuid.New().String())
	return req.WithContext(ctx)
}

func sampleDeduction() *models.DiamondDeduction {
	parcelID := "PAR-0001"
	return &models.DiamondDeduction{
		ID:                uuid.New(),
		OrderID:           uuid.New(),
		Type:              enums.DeductionTypeCenter,
		ParcelID:          &parcelID,
		CtWeight:          decimal.RequireFromString("1.500"),
		Stones:            1,
		PricePerCt:        decimal.RequireFromString("400.00"),
		TotalPrice:        decimal.RequireFromString("600.00"),
		IncludeInItemCost: true,
	}
}

func TestDeductionCreateNormalizesLegacyType(t *testing.T) {
	svc := &stubDeductionService{row: sampleDeduction()}
	handler := DeductionCreate(svc, nil)

	payload := []byte(`{"order_id":"` + uuid.NewString() + `","type":"c","parcel_id":"PAR-0001","ct_weight":"1.500","stones":"1","price_per_ct":"400.00"}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/deductions", payload))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.created == nil {
		t.Fatal("expected service to receive input")
	}
	if svc.created.Type != enums.DeductionTypeCenter {
		t.Fatalf("expected legacy 'c' normalized to center got %s", svc.created.Type)
	}
	if svc.created.Stones != 1 {
		t.Fatalf("expected quoted stone count parsed to 1 got %d", svc.created.Stones)
	}
}

func TestDeductionCreateAllowsOmittedPrice(t *testing.T) {
	svc := &stubDeductionService{row: sampleDeduction()}
	handler := DeductionCreate(svc, nil)

	payload := []byte(`{"order_id":"` + uuid.NewString() + `","type":"center","parcel_id":"PAR-0001","ct_weight":"1.000","stones":1}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/deductions", payload))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.created == nil {
		t.Fatal("expected service to receive input")
	}
	if svc.created.PricePerCt != nil {
		t.Fatalf("omitted price must reach the engine as nil, got %s", svc.created.PricePerCt)
	}
}

func TestDeductionCreateRejectsUnknownType(t *testing.T) {
	svc := &stubDeductionService{row: sampleDeduction()}
	handler := DeductionCreate(svc, nil)

	payload := []byte(`{"order_id":"` + uuid.NewString() + `","type":"pave","ct_weight":"1.0","price_per_ct":"100"}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/deductions", payload))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.created != nil {
		t.Fatal("service should not be called for an invalid type")
	}
}

func TestDeductionCreateRequiresAuthContext(t *testing.T) {
	handler := DeductionCreate(&stubDeductionService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/deductions", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestDeductionDeleteForwardsForceFlag(t *testing.T) {
	svc := &stubDeductionService{}
	router := chi.NewRouter()
	router.Delete("/api/v1/deductions/{deductionId}", DeductionDelete(svc, nil))

	id := uuid.New()
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, authedRequest(http.MethodDelete, "/api/v1/deductions/"+id.String()+"?force=true", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.deleted) != 1 || svc.deleted[0] != id {
		t.Fatalf("expected delete forwarded for %s got %v", id, svc.deleted)
	}
	if len(svc.forced) != 1 || !svc.forced[0] {
		t.Fatal("expected force flag forwarded")
	}
}

func TestDeductionDeleteStateConflictStatus(t *testing.T) {
	svc := &stubDeductionService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "restore the deduction before deleting, or pass force")}
	router := chi.NewRouter()
	router.Delete("/api/v1/deductions/{deductionId}", DeductionDelete(svc, nil))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, authedRequest(http.MethodDelete, "/api/v1/deductions/"+uuid.NewString(), nil))

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestDeductionRestoreReturnsRow(t *testing.T) {
	row := sampleDeduction()
	row.AddedToStock = true
	svc := &stubDeductionService{row: row}
	router := chi.NewRouter()
	router.Post("/api/v1/deductions/{deductionId}/restore", DeductionRestore(svc, nil))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/deductions/"+row.ID.String()+"/restore", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.restored) != 1 || svc.restored[0] != row.ID {
		t.Fatalf("expected restore forwarded for %s got %v", row.ID, svc.restored)
	}

	var envelope struct {
		Data deductionResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.AddedToStock {
		t.Fatal("expected added_to_stock true in payload")
	}
}

func TestDeductionBatchDeleteParsesIDs(t *testing.T) {
	svc := &stubDeductionService{}
	handler := DeductionBatchDelete(svc, nil)

	first, second := uuid.New(), uuid.New()
	payload := []byte(`{"ids":["` + first.String() + `","` + second.String() + `"],"force":true}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/deductions/batch-delete", payload))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.deleted) != 2 || svc.deleted[0] != first || svc.deleted[1] != second {
		t.Fatalf("expected both ids forwarded got %v", svc.deleted)
	}
}
