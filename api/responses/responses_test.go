package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/swiftpdv/pdv-backend/pkg/errors"
	"github.com/swiftpdv/pdv-backend/pkg/logger"
)

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env.Error
}

func TestWriteSuccessWrapsData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessStatus(rec, http.StatusCreated, map[string]int{"id": 9})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"id":9}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	WriteSuccess(rec, []string{})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestWriteErrorUsesCodeStatusAndMessage(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
		details bool
	}{
		{
			name:    "validation exposes message and details",
			err:     pkgerrors.New(pkgerrors.CodeValidation, "barcode is required").WithDetails(map[string]string{"field": "barcode"}),
			status:  http.StatusBadRequest,
			message: "barcode is required",
			details: true,
		},
		{
			name:    "insufficient stock keeps product message",
			err:     pkgerrors.New(pkgerrors.CodeInsufficient, "insufficient stock for Arroz 5kg").WithDetails(map[string]any{"available": 1}),
			status:  http.StatusUnprocessableEntity,
			message: "insufficient stock for Arroz 5kg",
			details: true,
		},
		{
			name:    "not found hides details",
			err:     pkgerrors.NotFound("sale", 4),
			status:  http.StatusNotFound,
			message: "sale not found",
		},
		{
			name:    "untyped error is internal",
			err:     errors.New("dial tcp: refused"),
			status:  http.StatusInternalServerError,
			message: "internal server error",
		},
		{
			name:    "dependency uses public message",
			err:     pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("redis down"), "cache unavailable"),
			status:  http.StatusServiceUnavailable,
			message: "dependency unavailable",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(context.Background(), nil, rec, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			body := decodeErrorBody(t, rec)
			assert.Equal(t, tc.message, body.Message)
			assert.Equal(t, tc.details, body.Details != nil)
		})
	}
}

func TestWriteErrorLogLevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: &buf})

	WriteError(context.Background(), logg, httptest.NewRecorder(), pkgerrors.NotFound("product", 4))
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"error_code":"NOT_FOUND"`)

	buf.Reset()
	WriteError(context.Background(), logg, httptest.NewRecorder(), errors.New("db down"))
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "request failed")
}

func TestWriteFile(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteFile(rec, "text/plain", "relatorio vendas.txt", []byte("ok"))

	assert.Equal(t, `attachment; filename="relatorio vendas.txt"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok", rec.Body.String())
}
