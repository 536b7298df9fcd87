package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/perthro/internal/models"
)

// Resolver supplies bytes for opaque storage references. Implementations
// are injected by the caller; the exporter ships a filesystem one.
type Resolver interface {
	Resolve(ctx context.Context, key string) ([]byte, error)
}

// Fetched pairs a plan entry with its resolved bytes. Err is set when
// the entry could not be resolved; the assembler omits such entries
// instead of failing the export.
type Fetched struct {
	Plan Plan
	Data []byte
	Err  error
}

// Fetcher resolves planned media concurrently.
type Fetcher struct {
	client      *http.Client
	resolver    Resolver
	logger      *slog.Logger
	concurrency int
	maxBytes    int64
}

// NewFetcher creates a Fetcher. resolver may be nil, in which case
// storage references fail per-entry. concurrency <= 0 means sequential.
func NewFetcher(client *http.Client, resolver Resolver, logger *slog.Logger, concurrency int) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Fetcher{
		client:      client,
		resolver:    resolver,
		logger:      logger,
		concurrency: concurrency,
		maxBytes:    32 << 20,
	}
}

// FetchAll resolves every plan entry and returns results in planning
// order regardless of completion order, so manifests stay reproducible.
// Individual failures (including cancellation of in-flight fetches) are
// recorded on the entry, never returned as an overall error.
func (f *Fetcher) FetchAll(ctx context.Context, plans []Plan) []Fetched {
	results := make([]Fetched, len(plans))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, plan := range plans {
		g.Go(func() error {
			data, err := f.fetch(gCtx, plan)
			if err != nil {
				f.logger.Warn("media fetch failed, omitting file",
					slog.String("filename", plan.Filename),
					slog.String("error", err.Error()))
			}
			results[i] = Fetched{Plan: plan, Data: data, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (f *Fetcher) fetch(ctx context.Context, plan Plan) ([]byte, error) {
	var data []byte
	var err error
	switch plan.Ref.Kind {
	case models.KindInlineData:
		data, err = decodeDataURI(plan.Ref.Raw)
	case models.KindStorageRef:
		if f.resolver == nil {
			return nil, errors.New("media: no storage resolver configured")
		}
		data, err = f.resolver.Resolve(ctx, plan.Ref.StorageKey())
	default:
		data, err = f.fetchURL(ctx, plan.Ref.Raw)
	}
	if err != nil {
		return nil, err
	}
	if err := sniffPayload(data); err != nil {
		return nil, err
	}
	return data, nil
}

func (f *Fetcher) fetchURL(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("media: build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media: fetch %s: status %d", rawURL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("media: read body: %w", err)
	}
	return data, nil
}

// decodeDataURI extracts the base64 payload of a data: URI.
func decodeDataURI(uri string) ([]byte, error) {
	i := strings.Index(uri, ",")
	if i < 0 {
		return nil, errors.New("media: malformed data URI")
	}
	meta, payload := uri[:i], uri[i+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, errors.New("media: data URI is not base64")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("media: decode data URI: %w", err)
	}
	return data, nil
}

// sniffPayload rejects payloads that are really HTML or JSON error
// pages served with a 200 status.
func sniffPayload(data []byte) error {
	trimmed := strings.TrimLeft(string(firstBytes(data, 16)), " \t\r\n")
	if trimmed == "" {
		return errors.New("media: empty payload")
	}
	switch trimmed[0] {
	case '<':
		return errors.New("media: payload looks like HTML, not media")
	case '{':
		return errors.New("media: payload looks like JSON, not media")
	}
	return nil
}

func firstBytes(data []byte, n int) []byte {
	if len(data) < n {
		return data
	}
	return data[:n]
}
