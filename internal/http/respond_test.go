package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/editbuf"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &domain.ValidationError{Field: "price", Reason: "price must be greater than 0"}, http.StatusUnprocessableEntity, "validation_failed"},
		{"not found", fmt.Errorf("add: %w", &domain.NotFoundError{Kind: "product", ID: 9}), http.StatusNotFound, "not_found"},
		{"retryable fetch", &domain.FetchError{Op: "list", StatusCode: 500}, http.StatusServiceUnavailable, "gateway_unavailable"},
		{"circuit open", &domain.FetchError{Op: "list", Err: domain.ErrCircuitOpen}, http.StatusServiceUnavailable, "gateway_unavailable"},
		{"rejected fetch", &domain.FetchError{Op: "update", StatusCode: 400}, http.StatusBadGateway, "gateway_error"},
		{"superseded", catalog.ErrSuperseded, http.StatusConflict, "superseded"},
		{"buffer closed", editbuf.ErrNotOpen, http.StatusConflict, "conflict"},
		{"buffer open", editbuf.ErrAlreadyOpen, http.StatusConflict, "conflict"},
		{"credentials", fmt.Errorf("%w: bad", session.ErrInvalidCredentials), http.StatusUnauthorized, "unauthorized"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			request := httptest.NewRequest(http.MethodGet, "/", nil)

			handleError(recorder, request, logger.Discard(), tt.err)

			assert.Equal(t, tt.status, recorder.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestUpdateFieldDTO_Text(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"iPhone X"`, "iPhone X"},
		{`12.5`, "12.5"},
		{`null`, ""},
		{`true`, "true"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, UpdateFieldDTO{Value: json.RawMessage(tt.raw)}.text(), tt.raw)
	}
}
