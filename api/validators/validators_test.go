package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/swiftpdv/pdv-backend/pkg/errors"
)

type saleLine struct {
	ProductID uint `json:"product_id" validate:"required,gt=0"`
	Quantity  int  `json:"quantity" validate:"required,gt=0"`
}

type saleBody struct {
	CustomerID *uint      `json:"customer_id" validate:"omitempty,gt=0"`
	Lines      []saleLine `json:"lines" validate:"required,min=1,dive"`
	Note       string     `json:"note" validate:"omitempty,max=5"`
}

func decode(t *testing.T, body string) (saleBody, *pkgerrors.Error) {
	t.Helper()
	var dest saleBody
	err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), &dest)
	if err == nil {
		return dest, nil
	}
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected coded error, got %v", err)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	return dest, typed
}

func TestDecodeJSONBodyAcceptsValidSale(t *testing.T) {
	got, err := decode(t, `{"customer_id":4,"lines":[{"product_id":1,"quantity":3}]}`)
	require.Nil(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 3, got.Lines[0].Quantity)
	assert.EqualValues(t, 4, *got.CustomerID)
}

func TestDecodeJSONBodyReportsNestedFieldPaths(t *testing.T) {
	_, err := decode(t, `{"lines":[{"product_id":1,"quantity":0}],"note":"too long"}`)
	require.NotNil(t, err)
	details, ok := err.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", details["lines[0].quantity"])
	assert.Equal(t, "must be at most 5 characters", details["note"])

	_, err = decode(t, `{"lines":[]}`)
	require.NotNil(t, err)
	assert.Equal(t, "must have at least 1 items", err.Details().(map[string]string)["lines"])
}

func TestDecodeJSONBodyRejectsBadInput(t *testing.T) {
	cases := map[string]struct {
		body    string
		message string
	}{
		"empty":         {``, "request body is empty"},
		"syntax":        {`{"lines":`, "malformed JSON"},
		"wrong type":    {`{"lines":"x"}`, "wrong type for lines"},
		"unknown field": {`{"user_id":1,"lines":[{"product_id":1,"quantity":1}]}`, "unknown field user_id"},
		"two objects":   {`{"lines":[{"product_id":1,"quantity":1}]} {}`, "request body must hold a single JSON object"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decode(t, tc.body)
			require.NotNil(t, err)
			assert.Equal(t, tc.message, err.Message())
		})
	}
}

func TestDecodeJSONBodyEnforcesSizeCap(t *testing.T) {
	huge := `{"note":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	_, err := decode(t, huge)
	require.NotNil(t, err)
	assert.Contains(t, err.Message(), "exceeds")
}

func withParam(key, value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestParseIDParam(t *testing.T) {
	id, err := ParseIDParam(withParam("id", "42"), "id")
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	for _, raw := range []string{"0", "-1", "abc", "", "99999999999"} {
		_, err := ParseIDParam(withParam("id", raw), "id")
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), raw)
	}
}

func TestTextParam(t *testing.T) {
	assert.Equal(t, "123.456.789-09", TextParam(withParam("cpf", " 123.456.789-09 "), "cpf", 14))
	assert.Equal(t, "Pão de", TextParam(withParam("q", "P%C3%A3o%20de%20queijo"), "q", 6))
	assert.Equal(t, "7891000000001", TextParam(withParam("barcode", "7891000000001"), "barcode", 0))
}
