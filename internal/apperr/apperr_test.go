package apperr

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, production bool, err error) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	e := echo.New()
	e.HTTPErrorHandler = Handler(production)
	e.GET("/x", func(c echo.Context) error { return err })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	return rec, got
}

func TestHandler_AppError(t *testing.T) {
	rec, got := serve(t, true, New(http.StatusBadRequest, CodeCartEmpty, "cart is empty"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeCartEmpty, got["code"])
	assert.Equal(t, "cart is empty", got["message"])
}

func TestHandler_WrappedAppErrorKeepsDetails(t *testing.T) {
	base := New(http.StatusConflict, CodePriceChanged, "prices changed").WithDetails([]string{"a"})
	rec, got := serve(t, true, errors.Join(errors.New("ctx"), base))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodePriceChanged, got["code"])
	assert.Equal(t, []any{"a"}, got["details"])
}

func TestHandler_EchoHTTPError(t *testing.T) {
	rec, got := serve(t, true, echo.NewHTTPError(http.StatusUnauthorized, "missing session"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeUnauthorized, got["code"])
	assert.Equal(t, "missing session", got["message"])
}

func TestHandler_UnknownErrorHidesDetailInProduction(t *testing.T) {
	rec, got := serve(t, true, errors.New("dial tcp: refused"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, CodeInternal, got["code"])
	assert.NotContains(t, got, "detail")

	_, got = serve(t, false, errors.New("dial tcp: refused"))
	assert.Equal(t, "dial tcp: refused", got["detail"])
}

func TestError_UnwrapsCause(t *testing.T) {
	cause := errors.New("db down")
	err := Internal(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "db down")
}
