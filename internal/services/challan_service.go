package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"challan-backend/internal/apperr"
	"challan-backend/internal/assets"
	"challan-backend/internal/fees"
	"challan-backend/internal/layout"
	"challan-backend/internal/metrics"
	"challan-backend/internal/models"
	"challan-backend/internal/storage"
	"challan-backend/internal/timeutil"
)

// saveTimeout bounds a persist that outlives its request
const saveTimeout = 60 * time.Second

// AssetFetcher downloads the school logo as PNG bytes
type AssetFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// LogStore persists generation attempts
type LogStore interface {
	Insert(ctx context.Context, entry *models.ChallanLog) error
	ListByStudent(ctx context.Context, studentID string, limit int) ([]models.ChallanLog, error)
}

// Notifier tells a student's devices that a file is ready
type Notifier interface {
	Publish(studentID string, n models.Notification)
}

// ChallanService runs the challan pipeline: compute amounts, fetch the
// logo, lay out and render the page, then persist it. Stages run strictly
// in order and the first failure aborts the attempt.
type ChallanService struct {
	fetcher   AssetFetcher
	persister storage.Persister
	logs      LogStore
	notifier  Notifier
	now       func() time.Time

	inFlight    map[string]bool
	inFlightMux sync.Mutex
}

// NewChallanService wires the pipeline. logs and notifier may be nil.
func NewChallanService(fetcher AssetFetcher, persister storage.Persister, logs LogStore, notifier Notifier) *ChallanService {
	return &ChallanService{
		fetcher:   fetcher,
		persister: persister,
		logs:      logs,
		notifier:  notifier,
		now:       timeutil.Now,
		inFlight:  make(map[string]bool),
	}
}

// Generate produces and stores the challan for req. Only one generation per
// fee runs at a time; a concurrent request for the same fee gets Busy.
func (s *ChallanService) Generate(ctx context.Context, studentID string, req models.GenerateChallanRequest) (*models.SaveResult, error) {
	key := inFlightKey(studentID, req.Fee)
	if !s.acquire(key) {
		return nil, apperr.New(apperr.Busy, "challan.generate", "generation already running for "+key)
	}
	defer s.release(key)

	start := time.Now()

	doc, err := s.render(ctx, req)
	var res *models.SaveResult
	if err == nil {
		// once writing starts a client disconnect must not leave half a file
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
		stage := time.Now()
		res, err = s.persister.Save(saveCtx, doc, doc.Filename)
		observe("save", stage)
		cancel()
	}

	s.record(ctx, studentID, req.Fee, res, err, time.Since(start))

	if err != nil {
		log.Printf("[Challan] Generation failed for fee %s: %v", req.Fee.ID, err)
		return nil, err
	}

	log.Printf("[Challan] Generated %s for fee %s in %s", res.Filename, req.Fee.ID, time.Since(start).Round(time.Millisecond))
	if s.notifier != nil {
		s.notifier.Publish(studentID, models.Notification{
			Title:    "Download Complete",
			Body:     fmt.Sprintf("%s has been saved.", res.Filename),
			FileURI:  res.URI,
			MimeType: res.MimeType,
		})
	}
	return res, nil
}

// Preview renders the challan without storing it
func (s *ChallanService) Preview(ctx context.Context, req models.GenerateChallanRequest) (*models.ChallanDocument, error) {
	return s.render(ctx, req)
}

// History lists a student's recent attempts; empty when no log is configured
func (s *ChallanService) History(ctx context.Context, studentID string, limit int) ([]models.ChallanLog, error) {
	if s.logs == nil {
		return []models.ChallanLog{}, nil
	}
	return s.logs.ListByStudent(ctx, studentID, limit)
}

func (s *ChallanService) render(ctx context.Context, req models.GenerateChallanRequest) (*models.ChallanDocument, error) {
	now := s.now()

	stage := time.Now()
	breakdown, err := fees.Compute(req.Fee, now)
	observe("compute", stage)
	if err != nil {
		return nil, err
	}

	stage = time.Now()
	logo, err := s.fetcher.Fetch(ctx, req.School.LogoURL)
	observe("fetch", stage)
	if err != nil {
		return nil, err
	}

	stage = time.Now()
	doc, err := layout.Render(layout.Data{
		Fee:        req.Fee,
		Breakdown:  breakdown,
		Bank:       req.Bank,
		School:     req.School,
		Campus:     req.Campus,
		IssuedAt:   now,
		LogoAspect: assets.Aspect(logo),
	}, logo)
	observe("render", stage)
	if err != nil {
		return nil, apperr.Wrap(apperr.LayoutData, "challan.render", err)
	}

	metrics.DocumentBytes.Observe(float64(len(doc.Bytes)))
	return doc, nil
}

func (s *ChallanService) record(ctx context.Context, studentID string, fee models.FeeRecord, res *models.SaveResult, err error, took time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	metrics.GenerationsTotal.WithLabelValues(s.persister.Strategy(), outcome).Inc()

	if s.logs == nil {
		return
	}

	entry := &models.ChallanLog{
		FeeID:      fee.ID,
		StudentID:  studentID,
		Strategy:   s.persister.Strategy(),
		Outcome:    outcome,
		DurationMs: took.Milliseconds(),
		CreatedAt:  s.now(),
	}
	if res != nil {
		entry.Filename = res.Filename
		entry.URI = res.URI
	}
	if err != nil {
		entry.ErrorKind = string(apperr.KindOf(err))
	}

	// the attempt is logged even when the client already went away
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.logs.Insert(logCtx, entry); err != nil {
		log.Printf("[Challan] Failed to write generation log: %v", err)
	}
}

func (s *ChallanService) acquire(key string) bool {
	s.inFlightMux.Lock()
	defer s.inFlightMux.Unlock()
	if s.inFlight[key] {
		return false
	}
	s.inFlight[key] = true
	return true
}

func (s *ChallanService) release(key string) {
	s.inFlightMux.Lock()
	delete(s.inFlight, key)
	s.inFlightMux.Unlock()
}

func inFlightKey(studentID string, fee models.FeeRecord) string {
	if fee.ID != "" {
		return fee.ID
	}
	return studentID + ":" + timeutil.FormatLocal(fee.Month, timeutil.MonthLayout)
}

func observe(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
