package collyfetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/newspulse/sentinel/internal/monitor"
)

func newTestFetcher() *Fetcher {
	return New(Config{UserAgent: "sentinel-test", Timeout: 5 * time.Second}, zap.NewNop())
}

// TestFetchPrimarySuccess verifies the backup is never touched when the
// primary responds.
func TestFetchPrimarySuccess(t *testing.T) {
	t.Parallel()

	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[{"title":"hello"}]}`))
	}))
	defer primary.Close()

	var backupHits atomic.Int32
	backup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		backupHits.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer backup.Close()

	f := newTestFetcher()
	body, err := f.Fetch(context.Background(), monitor.Source{
		ID:         "src",
		PrimaryURL: primary.URL,
		BackupURL:  backup.URL,
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(body) == 0 {
		t.Fatal("expected body")
	}
	if backupHits.Load() != 0 {
		t.Fatalf("backup should not be contacted on primary success, got %d hits", backupHits.Load())
	}
}

// TestFetchFailoverToBackup verifies exactly one backup attempt after a
// primary failure.
func TestFetchFailoverToBackup(t *testing.T) {
	t.Parallel()

	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer primary.Close()

	var backupHits atomic.Int32
	backup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		backupHits.Add(1)
		_, _ = w.Write([]byte(`[{"title":"from backup"}]`))
	}))
	defer backup.Close()

	f := newTestFetcher()
	body, err := f.Fetch(context.Background(), monitor.Source{
		ID:         "src",
		PrimaryURL: primary.URL,
		BackupURL:  backup.URL,
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(body) != `[{"title":"from backup"}]` {
		t.Fatalf("unexpected body: %s", body)
	}
	if got := backupHits.Load(); got != 1 {
		t.Fatalf("expected exactly one backup attempt, got %d", got)
	}
}

// TestFetchFailsWithoutBackup verifies a primary failure with no backup
// configured surfaces as an error without extra attempts.
func TestFetchFailsWithoutBackup(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer primary.Close()

	f := newTestFetcher()
	_, err := f.Fetch(context.Background(), monitor.Source{ID: "src", PrimaryURL: primary.URL})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected a single primary attempt, got %d", got)
	}
}

// TestFetchBothEndpointsFail verifies both failures surface in the error.
func TestFetchBothEndpointsFail(t *testing.T) {
	t.Parallel()

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	f := newTestFetcher()
	_, err := f.Fetch(context.Background(), monitor.Source{
		ID:         "src",
		PrimaryURL: failing.URL,
		BackupURL:  failing.URL,
	})
	if err == nil {
		t.Fatal("expected error when both endpoints fail")
	}
}

// TestFetchHonorsContextCancel verifies cancellation aborts the fetch.
func TestFetchHonorsContextCancel(t *testing.T) {
	t.Parallel()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer slow.Close()

	f := newTestFetcher()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := f.Fetch(ctx, monitor.Source{ID: "src", PrimaryURL: slow.URL})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("fetch did not abort promptly, took %v", elapsed)
	}
}
