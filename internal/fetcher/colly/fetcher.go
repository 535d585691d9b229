// Package collyfetcher implements monitor.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/newspulse/sentinel/internal/monitor"
)

// Config controls fetch behavior.
type Config struct {
	UserAgent string
	// Timeout bounds one Fetch call, including the backup attempt.
	Timeout time.Duration
}

// Fetcher fetches source endpoints with a single primary->backup failover.
// It holds no mutable state shared between calls.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true

	transport := newHTTPTransport()
	c.WithTransport(transport)

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
		logger:        logger,
	}
}

// Fetch attempts the source's primary endpoint and, on any failure, retries
// once against the backup endpoint within the remaining timeout budget. There
// is no further retry: subsequent attempts belong to the next scheduled tick.
func (f *Fetcher) Fetch(ctx context.Context, src monitor.Source) ([]byte, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	body, primaryErr := f.fetchURL(fetchCtx, src.PrimaryURL)
	if primaryErr == nil {
		return body, nil
	}
	if src.BackupURL == "" {
		return nil, fmt.Errorf("fetch %s: %w", src.ID, primaryErr)
	}

	f.logger.Warn("primary endpoint failed, trying backup",
		zap.String("source_id", src.ID),
		zap.Error(primaryErr),
	)
	body, backupErr := f.fetchURL(fetchCtx, src.BackupURL)
	if backupErr != nil {
		return nil, fmt.Errorf("fetch %s: primary: %v; backup: %w", src.ID, primaryErr, backupErr)
	}
	return body, nil
}

func (f *Fetcher) fetchURL(ctx context.Context, url string) ([]byte, error) {
	var (
		body     []byte
		status   int
		fetchErr error
	)

	collector := f.baseCollector.Clone()
	collector.IgnoreRobotsTxt = true
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)
	collector.WithTransport(f.transport)

	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	if err := f.runCollector(ctx, collector, url); err != nil {
		return nil, err
	}
	if fetchErr != nil {
		return nil, fmt.Errorf("visit %s: %w", url, fetchErr)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("visit %s: unexpected status %d", url, status)
	}
	return body, nil
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit %s: %w", url, err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
