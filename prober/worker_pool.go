package prober

import (
	"agent-browser/config"
	"agent-browser/models"
	"agent-browser/session"
	"agent-browser/utils"
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SessionFactory returns a fresh, unlaunched session for one worker.
type SessionFactory func() *session.Manager

// WorkerPool probes URLs with MaxWorkers independent browser sessions.
type WorkerPool struct {
	newSession SessionFactory
	prober     *Prober
	cfg        *config.Config
	logger     *zap.Logger
}

func NewWorkerPool(newSession SessionFactory, prober *Prober, cfg *config.Config, logger *zap.Logger) *WorkerPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		newSession: newSession,
		prober:     prober,
		cfg:        cfg,
		logger:     logger.Named("pool"),
	}
}

// Run probes every URL and returns one outcome per job processed, ordered
// as the input. A worker that cannot launch its browser stops the pool; the
// outcomes gathered so far are still returned along with the error.
func (p *WorkerPool) Run(ctx context.Context, urls []string) ([]models.ProbeOutcome, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	jobs := make(chan models.ProbeJob, len(urls))
	results := make(chan models.ProbeOutcome, len(urls))

	workerCount := p.cfg.MaxWorkers
	if len(urls) < workerCount {
		workerCount = len(urls)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 1; i <= workerCount; i++ {
		g.Go(func() error {
			return p.worker(gctx, i, jobs, results)
		})
	}

	for i, url := range urls {
		jobs <- models.ProbeJob{URL: url, Sequence: i}
	}
	close(jobs)

	errCh := make(chan error, 1)
	go func() {
		errCh <- g.Wait()
		close(results)
	}()

	outcomes := p.collect(results)
	return outcomes, <-errCh
}

func (p *WorkerPool) worker(ctx context.Context, id int, jobs <-chan models.ProbeJob, results chan<- models.ProbeOutcome) error {
	log := p.logger.With(zap.Int("worker", id))

	m := p.newSession()
	defer m.Close()

	launchCtx, cancel := context.WithTimeout(ctx, p.cfg.LaunchTimeout)
	err := m.Launch(launchCtx, p.cfg.LaunchOptions())
	cancel()
	if err != nil {
		return fmt.Errorf("worker %d: %w", id, err)
	}
	log.Debug("Worker session ready")

	first := true
	for job := range jobs {
		if !first {
			if err := utils.RandomDelay(ctx, p.cfg.MinDelay, p.cfg.MaxDelay); err != nil {
				return err
			}
		}
		first = false

		result, err := p.probeJob(ctx, m, job)
		if err != nil {
			log.Warn("Probe failed", zap.String("url", job.URL), zap.Error(err))
		}
		results <- models.ProbeOutcome{Job: job, Result: result, Error: err}
	}
	return nil
}

// probeJob opens a fresh page in the worker's context so every probe sees
// the init scripts as a newly created page would.
func (p *WorkerPool) probeJob(ctx context.Context, m *session.Manager, job models.ProbeJob) (models.ProbeResult, error) {
	page, err := m.NewPage(ctx)
	if err != nil {
		return models.ProbeResult{}, err
	}
	defer func() {
		if err := page.Close(); err != nil {
			p.logger.Debug("Failed to close probe page", zap.Error(err))
		}
	}()

	var result models.ProbeResult
	err = utils.Retry(ctx, p.cfg.MaxRetries, func() error {
		reqCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()

		var err error
		result, err = p.prober.Probe(reqCtx, page, job.URL)
		return err
	})
	return result, err
}

func (p *WorkerPool) collect(results <-chan models.ProbeOutcome) []models.ProbeOutcome {
	var all []models.ProbeOutcome
	failed := 0

	for outcome := range results {
		if outcome.Error != nil {
			failed++
		}
		all = append(all, outcome)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Job.Sequence < all[j].Job.Sequence
	})

	p.logger.Info("Probing finished", zap.Int("probed", len(all)-failed), zap.Int("failed", failed))
	return all
}
