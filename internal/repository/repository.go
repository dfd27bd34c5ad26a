// Package repository turns API pages into typed, id-keyed entity collections.
//
// A page never yields more than the requested limit, even when the server
// returns more records than asked for.
//
// Records that fail the parser's validity check, or whose decoding fails (for
// example a resource link without an id), are dropped. Dropped records are
// logged and counted in metrics but never reported to the caller, so a page of
// limit L can yield fewer than L entities. Client errors propagate unchanged.
package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/five82/dronewatch/internal/drone"
	"github.com/five82/dronewatch/internal/droneapi"
	"github.com/five82/dronewatch/internal/metrics"
)

// Repository orchestrates a Fetcher and the drone parsers. It holds only
// immutable collaborators and is safe for concurrent use.
type Repository struct {
	fetcher droneapi.Fetcher
	logger  *zap.Logger
	metrics *metrics.Collector
}

// New builds a Repository. logger and collector may be nil.
func New(fetcher droneapi.Fetcher, logger *zap.Logger, collector *metrics.Collector) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{
		fetcher: fetcher,
		logger:  logger.Named("repository"),
		metrics: collector,
	}
}

// FetchMap fetches one page of p's endpoint and keys the decoded entities by
// id. When a page holds several records with the same id the later one wins.
func FetchMap[T drone.Entity](ctx context.Context, r *Repository, p drone.Parser[T], limit, offset int) (map[int64]T, error) {
	items, _, err := fetchPage(ctx, r, p, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]T, len(items))
	for _, item := range items {
		out[item.EntityID()] = item
	}
	return out, nil
}

// FetchList fetches one page of p's endpoint and returns the decoded entities
// in response order.
func FetchList[T any](ctx context.Context, r *Repository, p drone.Parser[T], limit, offset int) ([]T, error) {
	items, _, err := fetchPage(ctx, r, p, limit, offset)
	return items, err
}

// CollectMap walks pages of pageSize until a short page, the reported count,
// or maxPages (zero means no page cap). Later pages overwrite earlier ids.
func CollectMap[T drone.Entity](ctx context.Context, r *Repository, p drone.Parser[T], pageSize, maxPages int) (map[int64]T, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", pageSize)
	}
	out := make(map[int64]T)
	offset := 0
	for page := 0; maxPages <= 0 || page < maxPages; page++ {
		items, meta, err := fetchPage(ctx, r, p, pageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			out[item.EntityID()] = item
		}
		offset += pageSize
		if meta.received < pageSize || (meta.count > 0 && int64(offset) >= meta.count) {
			break
		}
	}
	return out, nil
}

// FetchTail returns the last n records of p's endpoint in response order. It
// probes the reported count with a one-record page first; when the API does
// not report a count the first n records are returned instead.
func FetchTail[T any](ctx context.Context, r *Repository, p drone.Parser[T], n int) ([]T, error) {
	if n <= 0 {
		return nil, fmt.Errorf("tail size must be positive, got %d", n)
	}
	_, meta, err := fetchPage(ctx, r, p, 1, 0)
	if err != nil {
		return nil, err
	}
	offset := 0
	if meta.count > int64(n) {
		offset = int(meta.count) - n
	}
	items, _, err := fetchPage(ctx, r, p, n, offset)
	return items, err
}

// Drones fetches one page of static drone records.
func (r *Repository) Drones(ctx context.Context, limit, offset int) (map[int64]drone.Drone, error) {
	return FetchMap(ctx, r, drone.DroneParser{}, limit, offset)
}

// DroneTypes fetches one page of drone type specifications.
func (r *Repository) DroneTypes(ctx context.Context, limit, offset int) (map[int64]drone.DroneType, error) {
	return FetchMap(ctx, r, drone.DroneTypeParser{}, limit, offset)
}

// Dynamics fetches one page of telemetry samples across all drones.
func (r *Repository) Dynamics(ctx context.Context, limit, offset int) ([]drone.Dynamics, error) {
	return FetchList(ctx, r, drone.DynamicsParser{}, limit, offset)
}

// DynamicsFor fetches the telemetry samples of one drone from the nested
// drones/{id}/dynamics endpoint, in response order.
func (r *Repository) DynamicsFor(ctx context.Context, droneID int64, limit, offset int) ([]drone.Dynamics, error) {
	p := drone.DynamicsParser{Path: DynamicsPath(droneID)}
	return FetchList(ctx, r, p, limit, offset)
}

// DynamicsPath is the nested endpoint listing one drone's samples.
func DynamicsPath(droneID int64) string {
	return drone.EndpointDrones + "/" + strconv.FormatInt(droneID, 10) + "/dynamics"
}

// DroneByID fetches a single drone record.
func (r *Repository) DroneByID(ctx context.Context, id int64) (drone.Drone, error) {
	return fetchOne(ctx, r, drone.DroneParser{}, id)
}

// DroneTypeByID fetches a single drone type specification.
func (r *Repository) DroneTypeByID(ctx context.Context, id int64) (drone.DroneType, error) {
	return fetchOne(ctx, r, drone.DroneTypeParser{}, id)
}

type pageMeta struct {
	count    int64
	received int
}

func fetchPage[T any](ctx context.Context, r *Repository, p drone.Parser[T], limit, offset int) ([]T, pageMeta, error) {
	endpoint := p.Endpoint()
	page, err := r.fetcher.FetchPage(ctx, endpoint, limit, offset)
	if err != nil {
		return nil, pageMeta{}, err
	}
	records := page.Results
	if len(records) > limit {
		r.logger.Debug("server ignored page limit",
			zap.String("endpoint", endpoint),
			zap.Int("limit", limit),
			zap.Int("received", len(records)))
		records = records[:max(limit, 0)]
	}
	items, skipped := decode(p, records)
	if skipped > 0 {
		r.metrics.RecordSkipped(endpoint, skipped)
		r.logger.Debug("skipped invalid records",
			zap.String("endpoint", endpoint),
			zap.Int("skipped", skipped),
			zap.Int("received", len(records)))
	}
	return items, pageMeta{count: page.Count, received: len(records)}, nil
}

func fetchOne[T any](ctx context.Context, r *Repository, p drone.Parser[T], id int64) (T, error) {
	var zero T
	endpoint := p.Endpoint() + "/" + strconv.FormatInt(id, 10)
	record, err := r.fetcher.FetchOne(ctx, endpoint)
	if err != nil {
		return zero, err
	}
	if !p.Valid(record) {
		return zero, fmt.Errorf("%s: %w", endpoint, drone.ErrMissingField)
	}
	item, err := p.Parse(record)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", endpoint, err)
	}
	return item, nil
}

func decode[T any](p drone.Parser[T], records []gjson.Result) ([]T, int) {
	items := make([]T, 0, len(records))
	skipped := 0
	for _, rec := range records {
		if !p.Valid(rec) {
			skipped++
			continue
		}
		item, err := p.Parse(rec)
		if err != nil {
			skipped++
			continue
		}
		items = append(items, item)
	}
	return items, skipped
}
