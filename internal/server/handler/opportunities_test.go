package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/domain"
)

type fakeCache struct {
	snap domain.Snapshot
	err  error
}

func (f *fakeCache) SetActive(ctx context.Context, snap domain.Snapshot) error { return nil }

func (f *fakeCache) GetActive(ctx context.Context) (domain.Snapshot, error) {
	return f.snap, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetActiveReturnsSnapshot(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	cache := &fakeCache{snap: domain.Snapshot{
		Active: []domain.ActivePath{
			{PathID: "BTCUSDT|ETHBTC|ETHUSDT", Value: 3.688, Since: now},
		},
		Time: now,
	}}
	h := NewOpportunityHandler(cache, discardLogger())

	rec := httptest.NewRecorder()
	h.GetActive(rec, httptest.NewRequest("GET", "/api/opportunities", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}

	var got domain.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Active) != 1 || got.Active[0].PathID != "BTCUSDT|ETHBTC|ETHUSDT" {
		t.Errorf("active = %+v", got.Active)
	}
	if got.Active[0].Value != 3.688 {
		t.Errorf("value = %v, want 3.688", got.Active[0].Value)
	}
}

func TestGetActiveEmptySnapshotIsNotAnError(t *testing.T) {
	h := NewOpportunityHandler(&fakeCache{}, discardLogger())

	rec := httptest.NewRecorder()
	h.GetActive(rec, httptest.NewRequest("GET", "/api/opportunities", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got struct {
		Active []domain.ActivePath `json:"active"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Active == nil || len(got.Active) != 0 {
		t.Errorf("active should be an empty list, got %v", got.Active)
	}
}

func TestGetActiveCacheErrorIs503(t *testing.T) {
	h := NewOpportunityHandler(&fakeCache{err: errors.New("redis down")}, discardLogger())

	rec := httptest.NewRecorder()
	h.GetActive(rec, httptest.NewRequest("GET", "/api/opportunities", nil))

	if rec.Code != 503 {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["error"] == "" {
		t.Error("error body missing")
	}
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(discardLogger())

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest("GET", "/api/health", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["status"] != "ok" {
		t.Errorf("status = %v, want ok", got["status"])
	}
}
