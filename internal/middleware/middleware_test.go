package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"challan-backend/internal/auth"
	"challan-backend/internal/config"
	"challan-backend/pkg/utils"
)

func jwtManager() *auth.JWTManager {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpirationHours = 1
	cfg.JWT.Issuer = "challan-backend"
	return auth.NewJWTManager(cfg)
}

func echoStudent(w http.ResponseWriter, r *http.Request) {
	id, _ := GetStudentIDFromContext(r.Context())
	w.Write([]byte(id))
}

func TestAuthenticate(t *testing.T) {
	jm := jwtManager()
	token, err := jm.GenerateToken("stu-9", "campus-1", "student")
	if err != nil {
		t.Fatal(err)
	}
	h := NewAuthMiddleware(jm).Authenticate(http.HandlerFunc(echoStudent))

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + token, http.StatusOK, "stu-9"},
		{"missing", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized, ""},
		{"bad token", "Bearer nope", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/challans", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status: got %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusOK && rec.Body.String() != tt.body {
				t.Errorf("body: %q", rec.Body.String())
			}
			if tt.status == http.StatusUnauthorized {
				var body utils.ErrorBody
				if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.Error != "unauthorized" {
					t.Errorf("error body: %+v %v", body, err)
				}
			}
		})
	}
}

func TestAuthenticateQuery(t *testing.T) {
	jm := jwtManager()
	token, _ := jm.GenerateToken("stu-9", "", "student")
	h := NewAuthMiddleware(jm).AuthenticateQuery(http.HandlerFunc(echoStudent))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/notifications?token="+token, nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "stu-9" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/notifications", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token: got %d", rec.Code)
	}
}

func TestPanicRecovery(t *testing.T) {
	h := PanicRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/challans", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status: %d", rec.Code)
	}
	var body utils.ErrorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.Error != "unknown" {
		t.Errorf("body: %+v %v", body, err)
	}
}

func TestAPILoggingKeepsStatus(t *testing.T) {
	h := APILogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("ok"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/challans", nil))
	if rec.Code != http.StatusCreated || rec.Body.String() != "ok" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}
