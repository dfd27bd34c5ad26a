package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/dronewatch/internal/drone"
	"github.com/five82/dronewatch/internal/repository"
	"github.com/five82/dronewatch/internal/state"
)

const (
	defaultPageLimit = 50
	// maxPages caps one collection walk at maxPages*pageLimit records.
	maxPages = 40
)

// Refresher fetches the whole fleet and publishes it to a Store.
type Refresher struct {
	repo      *repository.Repository
	store     *state.Store
	pageLimit int
	logger    *zap.Logger
}

// NewRefresher builds a Refresher. A pageLimit of zero or less uses the
// default.
func NewRefresher(repo *repository.Repository, store *state.Store, pageLimit int, logger *zap.Logger) *Refresher {
	if pageLimit <= 0 {
		pageLimit = defaultPageLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{repo: repo, store: store, pageLimit: pageLimit, logger: logger.Named("refresh")}
}

// Refresh collects drones, types and the latest telemetry concurrently. On
// failure the store keeps its previous fleet and records the error. A refresh
// cut short by its context leaves the store untouched.
func (r *Refresher) Refresh(ctx context.Context) error {
	start := time.Now()
	var fleet state.Fleet

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		drones, err := repository.CollectMap(gctx, r.repo, drone.DroneParser{}, r.pageLimit, maxPages)
		if err != nil {
			return fmt.Errorf("fetch drones: %w", err)
		}
		fleet.Drones = drones
		return nil
	})
	g.Go(func() error {
		types, err := repository.CollectMap(gctx, r.repo, drone.DroneTypeParser{}, r.pageLimit, maxPages)
		if err != nil {
			return fmt.Errorf("fetch drone types: %w", err)
		}
		fleet.Types = types
		return nil
	})
	g.Go(func() error {
		samples, err := repository.FetchTail(gctx, r.repo, drone.DynamicsParser{}, r.pageLimit)
		if err != nil {
			return fmt.Errorf("fetch dynamics: %w", err)
		}
		fleet.Latest = drone.LatestByDrone(samples)
		return nil
	})

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			// Paused or shutting down: keep the store's failure count as is.
			r.logger.Debug("refresh interrupted", zap.Error(err))
			return err
		}
		r.store.Update(nil, err)
		return err
	}
	r.store.Update(&fleet, nil)
	r.logger.Debug("refresh complete",
		zap.Int("drones", len(fleet.Drones)),
		zap.Int("types", len(fleet.Types)),
		zap.Int("telemetry", len(fleet.Latest)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
