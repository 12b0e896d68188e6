package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"challan-backend/internal/apperr"
	"challan-backend/internal/health"
	"challan-backend/internal/middleware"
	"challan-backend/internal/models"
	"challan-backend/pkg/utils"
)

type fakePipeline struct {
	err       error
	student   string
	limit     int
	generated models.GenerateChallanRequest
}

func (p *fakePipeline) Generate(ctx context.Context, studentID string, req models.GenerateChallanRequest) (*models.SaveResult, error) {
	p.student = studentID
	p.generated = req
	if p.err != nil {
		return nil, p.err
	}
	return &models.SaveResult{URI: "file:///docs/a.pdf", Filename: "a.pdf", MimeType: models.PDFMimeType}, nil
}

func (p *fakePipeline) Preview(ctx context.Context, req models.GenerateChallanRequest) (*models.ChallanDocument, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &models.ChallanDocument{Bytes: []byte("%PDF-1.3"), Filename: "Fee Challan October 2026.pdf", MimeType: models.PDFMimeType}, nil
}

func (p *fakePipeline) History(ctx context.Context, studentID string, limit int) ([]models.ChallanLog, error) {
	p.student = studentID
	p.limit = limit
	return []models.ChallanLog{{FeeID: "fee-1", StudentID: studentID, Outcome: "success"}}, nil
}

type fakeSocket struct{ student string }

func (s *fakeSocket) ServeWS(w http.ResponseWriter, r *http.Request, studentID string) {
	s.student = studentID
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func asStudent(r *http.Request, id string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.StudentIDKey, id))
}

const body = `{"fee":{"id":"fee-1","amount":2000},"bank":{"account":"0123"},"school":{"name":"Green Valley"}}`

func TestGenerateHandler(t *testing.T) {
	tests := []struct {
		name     string
		student  string
		body     string
		err      error
		wantCode int
		wantKind string
	}{
		{"created", "stu-1", body, nil, http.StatusCreated, ""},
		{"unauthenticated", "", body, nil, http.StatusUnauthorized, ""},
		{"malformed body", "stu-1", `{"fee":`, nil, http.StatusBadRequest, "bad_request"},
		{"invalid fee", "stu-1", body, apperr.New(apperr.InvalidFeeData, "fees.compute", "negative"), http.StatusUnprocessableEntity, string(apperr.InvalidFeeData)},
		{"logo", "stu-1", body, apperr.New(apperr.AssetFetch, "assets.fetch", "404"), http.StatusBadGateway, string(apperr.AssetFetch)},
		{"permission", "stu-1", body, apperr.New(apperr.PermissionDenied, "storage.root", "denied"), http.StatusForbidden, string(apperr.PermissionDenied)},
		{"busy", "stu-1", body, apperr.New(apperr.Busy, "challan.generate", "running"), http.StatusConflict, string(apperr.Busy)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePipeline{err: tt.err}
			h := NewChallanHandler(p, &fakeSocket{})

			req := httptest.NewRequest(http.MethodPost, "/api/challans", strings.NewReader(tt.body))
			if tt.student != "" {
				req = asStudent(req, tt.student)
			}
			rec := httptest.NewRecorder()
			h.Generate(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status: got %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantKind != "" {
				var e utils.ErrorBody
				if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
					t.Fatal(err)
				}
				if e.Error != tt.wantKind || e.Message == "" {
					t.Errorf("error body: %+v", e)
				}
			}
			if tt.wantCode == http.StatusCreated {
				var res models.SaveResult
				if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
					t.Fatal(err)
				}
				if res.URI != "file:///docs/a.pdf" || p.student != "stu-1" || p.generated.Fee.ID != "fee-1" {
					t.Errorf("result %+v, pipeline %+v", res, p)
				}
			}
		})
	}
}

func TestPreviewHandler(t *testing.T) {
	h := NewChallanHandler(&fakePipeline{}, &fakeSocket{})
	rec := httptest.NewRecorder()
	h.Preview(rec, httptest.NewRequest(http.MethodPost, "/api/challans/preview", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != models.PDFMimeType {
		t.Errorf("content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="Fee Challan October 2026.pdf"` {
		t.Errorf("content disposition %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF") {
		t.Error("body is not a pdf")
	}

	failing := NewChallanHandler(&fakePipeline{err: apperr.New(apperr.LayoutData, "layout", "no account")}, &fakeSocket{})
	rec = httptest.NewRecorder()
	failing.Preview(rec, httptest.NewRequest(http.MethodPost, "/api/challans/preview", strings.NewReader(body)))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("layout failure status %d", rec.Code)
	}
}

func TestHistoryHandler(t *testing.T) {
	tests := []struct {
		query     string
		wantCode  int
		wantLimit int
	}{
		{"", http.StatusOK, defaultHistory},
		{"?limit=5", http.StatusOK, 5},
		{"?limit=5000", http.StatusOK, maxHistory},
		{"?limit=0", http.StatusBadRequest, 0},
		{"?limit=abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			p := &fakePipeline{}
			h := NewChallanHandler(p, &fakeSocket{})
			rec := httptest.NewRecorder()
			h.History(rec, asStudent(httptest.NewRequest(http.MethodGet, "/api/challans/history"+tt.query, nil), "stu-1"))

			if rec.Code != tt.wantCode {
				t.Fatalf("status: got %d, want %d", rec.Code, tt.wantCode)
			}
			if p.limit != tt.wantLimit {
				t.Errorf("limit: got %d, want %d", p.limit, tt.wantLimit)
			}
		})
	}
}

func TestNotificationsHandler(t *testing.T) {
	sock := &fakeSocket{}
	h := NewChallanHandler(&fakePipeline{}, sock)

	rec := httptest.NewRecorder()
	h.Notifications(rec, httptest.NewRequest(http.MethodGet, "/ws/notifications", nil))
	if rec.Code != http.StatusUnauthorized || sock.student != "" {
		t.Errorf("anonymous socket: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Notifications(rec, asStudent(httptest.NewRequest(http.MethodGet, "/ws/notifications", nil), "stu-1"))
	if sock.student != "stu-1" {
		t.Errorf("socket served for %q", sock.student)
	}
}

func TestReadinessHealth(t *testing.T) {
	h := NewHealthHandler(health.NewHealthChecker(nil, nil, t.TempDir()))
	rec := httptest.NewRecorder()
	h.ReadinessHealth(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status %d: %s", rec.Code, rec.Body.String())
	}

	h = NewHealthHandler(health.NewHealthChecker(nil, nil, "/does/not/exist"))
	rec = httptest.NewRecorder()
	h.ReadinessHealth(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("missing storage root status %d", rec.Code)
	}
}
