package controllers

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidhalperin/gemcore-backend/api/middleware"
	pkgerrors "github.com/davidhalperin/gemcore-backend/pkg/errors"
)

// actorFromContext resolves the authenticated user id seeded by the auth
// middleware.
func actorFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id in token")
	}
	return id, nil
}

func parsePathUUID(value, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").
			WithDetails(map[string]any{"field": field})
	}
	return id, nil
}

func parseDecimalField(value, field string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a decimal number").
			WithDetails(map[string]any{"field": field})
	}
	return d, nil
}

func parseOptionalDecimal(value *string, field string) (*decimal.Decimal, error) {
	if value == nil {
		return nil, nil
	}
	d, err := parseDecimalField(*value, field)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// flexInt accepts both a JSON number and a quoted numeric string. The legacy
// front end sends stone counts as strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	trimmed := bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = 0
		return nil
	}
	value, err := strconv.Atoi(string(trimmed))
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "value must be a whole number")
	}
	*f = flexInt(value)
	return nil
}
