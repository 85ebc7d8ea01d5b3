package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimers/internal/domain"
	"github.com/hamed0406/uptimers/internal/probe"
	"github.com/hamed0406/uptimers/internal/repo"
)

// Prober runs one bounded-retry probe. *probe.RetryChecker implements it.
type Prober interface {
	Probe(ctx context.Context, target string) probe.Result
}

// Evaluator decides whether an outcome is a transition. *Alerter implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, site domain.Site, o domain.Outcome) (bool, error)
}

// Refresher rebuilds the published page. *page.Publisher implements it.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type RecheckerConfig struct {
	Interval           time.Duration
	ProbeConcurrency   int
	PersistConcurrency int
}

// Rechecker is the cycle loop: probe every site, evaluate and persist each
// outcome, then refresh the page.
type Rechecker struct {
	Logger    *zap.Logger
	Sites     []domain.Site
	Prober    Prober
	Alerter   Evaluator
	Store     repo.FactWriter
	Publisher Refresher
	Cfg       RecheckerConfig
	// Now is the clock; tests pin it.
	Now func() time.Time
}

func NewRechecker(
	logger *zap.Logger,
	sites []domain.Site,
	prober Prober,
	alerter Evaluator,
	store repo.FactWriter,
	publisher Refresher,
	cfg RecheckerConfig,
) *Rechecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProbeConcurrency < 1 {
		cfg.ProbeConcurrency = 1
	}
	if cfg.PersistConcurrency < 1 {
		cfg.PersistConcurrency = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Rechecker{
		Logger:    logger,
		Sites:     sites,
		Prober:    prober,
		Alerter:   alerter,
		Store:     store,
		Publisher: publisher,
		Cfg:       cfg,
		Now:       time.Now,
	}
}

// Run does an immediate cycle, then waits Interval after each cycle ends
// before starting the next. Cycles never overlap. Stops when ctx is cancelled.
func (r *Rechecker) Run(ctx context.Context) {
	t := time.NewTimer(0)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("rechecker_stopped")
			return
		case <-t.C:
		}
		// Errors are already logged inside the cycle.
		_ = r.RunOnce(ctx)
		t.Reset(r.Cfg.Interval)
	}
}

// RunOnce runs a single cycle. The returned error combines every per-site
// failure and a failed refresh; none of them stops the rest of the cycle.
// A cancelled ctx discards unfinished outcomes and skips the refresh.
func (r *Rechecker) RunOnce(ctx context.Context) error {
	cycleID := uuid.NewString()
	log := r.Logger.With(zap.String("cycle_id", cycleID))
	now := domain.TruncateMinute(r.Now())
	start := time.Now()

	probeSem := make(chan struct{}, r.Cfg.ProbeConcurrency)
	persistSem := make(chan struct{}, r.Cfg.PersistConcurrency)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)

	for _, s := range r.Sites {
		site := s
		probeSem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()

			res := r.Prober.Probe(ctx, site.Site)
			<-probeSem
			if ctx.Err() != nil {
				// A probe cut short by shutdown says nothing about the site.
				return
			}

			o := domain.Outcome{
				Site:       site.Site,
				Timestamp:  now,
				Success:    res.Success,
				StatusCode: res.StatusCode,
				Attempts:   res.Attempts,
			}
			log.Debug("site_probed",
				zap.String("site", site.Site),
				zap.Int("status_code", o.StatusCode),
				zap.Bool("success", o.Success),
				zap.Int("attempts", o.Attempts),
			)

			persistSem <- struct{}{}
			err := r.persist(ctx, site, o)
			<-persistSem

			if err != nil {
				log.Warn("site_persist_failed", zap.String("site", site.Site), zap.Error(err))
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		log.Info("cycle_cancelled")
		return multierr.Append(errs, err)
	}
	if err := r.Publisher.Refresh(ctx); err != nil {
		log.Warn("page_refresh_failed", zap.Error(err))
		errs = multierr.Append(errs, err)
	}

	log.Info("cycle_done",
		zap.Int("sites", len(r.Sites)),
		zap.Int("failures", len(multierr.Errors(errs))),
		zap.Time("timestamp", now),
		zap.Duration("took", time.Since(start)),
	)
	return errs
}

// persist evaluates the outcome against the stored history, then writes the
// fact and the site row. A failed read skips the writes so the next cycle
// still compares against the same history.
func (r *Rechecker) persist(ctx context.Context, site domain.Site, o domain.Outcome) error {
	if _, err := r.Alerter.Evaluate(ctx, site, o); err != nil {
		return err
	}
	inserted, err := r.Store.InsertFactIfAbsent(ctx, o.Fact())
	if err != nil {
		return fmt.Errorf("site %s: %w", site.Site, err)
	}
	if !inserted {
		r.Logger.Debug("fact_exists", zap.String("site", site.Site), zap.Time("timestamp", o.Timestamp))
	}
	if err := r.Store.UpsertSite(ctx, site); err != nil {
		return fmt.Errorf("site %s: %w", site.Site, err)
	}
	return nil
}
