// Package updater periodically re-fetches remote scripts that have gone
// stale.
//
// Staleness is driven by a single timestamp per script: after a successful
// update the script waits the full success age before it is checked again,
// while a failed update stamps the same timestamp and retries on the shorter
// error backoff. Manually added scripts have no source URL and are never
// touched.
package updater

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/config"
	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/logging"
	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/script/registry"
)

// Updater runs the staleness sweep against a registry.
type Updater struct {
	registry *registry.Registry
	logger   *logging.Logger
	cfg      config.UpdateConfig
	now      func() time.Time
}

// New creates an updater with the given policy.
func New(reg *registry.Registry, cfg config.UpdateConfig, logger *logging.Logger) *Updater {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Updater{
		registry: reg,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (u *Updater) SetClock(now func() time.Time) { u.now = now }

// Result summarizes one sweep.
type Result struct {
	Checked int
	Updated int
	Failed  int
	Skipped int
}

// RunOnce sweeps every remote script, re-fetching those past their backoff
// window. Fetches happen one script at a time outside the registry locks;
// both documents are persisted once at the end regardless of individual
// outcomes.
func (u *Updater) RunOnce(ctx context.Context) (Result, error) {
	var res Result
	for _, script := range u.registry.List() {
		if script.URL == nil {
			continue
		}
		res.Checked++

		if !u.due(script.LastUpdated, script.LastFetchError != nil) {
			res.Skipped++
			continue
		}

		result, err := u.registry.Pipeline(ctx, *script.URL)
		if err != nil {
			res.Failed++
			u.logger.Warn("Auto-update failed",
				zap.String("id", script.ID),
				zap.String("name", script.Name),
				zap.Error(err))
			if applyErr := u.registry.ApplyFailure(script.ID, err.Error()); applyErr != nil {
				u.logger.Warn("Script vanished during update", zap.String("id", script.ID))
			}
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if err := u.registry.ApplySuccess(script.ID, result); err != nil {
			u.logger.Warn("Script vanished during update", zap.String("id", script.ID))
			continue
		}
		res.Updated++
		u.logger.Info("Script auto-updated",
			zap.String("id", script.ID),
			zap.String("name", script.Name))
	}

	if err := u.registry.SaveAll(); err != nil {
		return res, err
	}
	return res, ctx.Err()
}

// Run sweeps immediately and then on every interval tick until ctx is done.
func (u *Updater) Run(ctx context.Context) {
	if _, err := u.RunOnce(ctx); err != nil {
		u.logger.Warn("Auto-update sweep error", zap.Error(err))
	}

	ticker := time.NewTicker(u.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := u.RunOnce(ctx); err != nil {
				u.logger.Warn("Auto-update sweep error", zap.Error(err))
			}
		}
	}
}

// due reports whether a script's backoff window has elapsed. A script with no
// timestamp has never been updated and is always due.
func (u *Updater) due(lastUpdated *int64, lastFailed bool) bool {
	if lastUpdated == nil {
		return true
	}
	window := u.cfg.SuccessAge
	if lastFailed {
		window = u.cfg.ErrorBackoff
	}
	age := u.now().Sub(time.Unix(*lastUpdated, 0))
	return age >= window
}
