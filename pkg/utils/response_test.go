package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"challan-backend/internal/apperr"
)

func TestError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{apperr.New(apperr.InvalidFeeData, "op", "x"), http.StatusUnprocessableEntity, "invalid_fee_data"},
		{apperr.New(apperr.AssetFetch, "op", "x"), http.StatusBadGateway, "asset_fetch_error"},
		{apperr.New(apperr.PermissionDenied, "op", "x"), http.StatusForbidden, "permission_denied"},
		{apperr.New(apperr.WriteFailure, "op", "x"), http.StatusInternalServerError, "write_failure"},
		{apperr.New(apperr.Busy, "op", "x"), http.StatusConflict, "busy"},
		{errors.New("secret detail"), http.StatusInternalServerError, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, tt.err)

			if rec.Code != tt.status {
				t.Errorf("status: got %d, want %d", rec.Code, tt.status)
			}
			var body ErrorBody
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Error != tt.kind || body.Message == "" {
				t.Errorf("body: %+v", body)
			}
			if body.Message == "secret detail" {
				t.Error("internal error text leaked")
			}
		})
	}
}
