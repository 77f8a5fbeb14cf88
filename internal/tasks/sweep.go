package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dtunes/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultSweepWorkers = 4
	maxSweepWorkers     = 16
)

// UserLister lists every stored user id.
type UserLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// PairRepairer repairs every relationship pair of one user and reports how many it wrote.
type PairRepairer interface {
	SweepUser(ctx context.Context, userID string) (int, error)
}

// SweepOpts contains configuration for reconciliation sweeps.
type SweepOpts struct {
	Workers   int     // Concurrent workers (default: 4, max: 16)
	RateLimit float64 // Users swept per second; zero means unlimited
}

// UserSweepResult is the outcome of sweeping one user.
type UserSweepResult struct {
	UserID   string
	Repaired int
	Err      error
}

// SweepResult summarizes one full sweep.
type SweepResult struct {
	Scanned  int               // Users swept
	Repaired int               // Pairs written
	Failed   int               // Users whose sweep returned an error
	Failures []UserSweepResult // Details for each failed user
	Duration time.Duration
}

// Sweeper walks every user and repairs half-applied relationship pairs.
type Sweeper struct {
	users    UserLister
	repairer PairRepairer
	opts     SweepOpts
	logger   *log.Logger
}

// NewSweeper creates a [Sweeper]. repairer is usually a social.Reconciler.
func NewSweeper(users UserLister, repairer PairRepairer, opts SweepOpts, logger *log.Logger) *Sweeper {
	if opts.Workers <= 0 {
		opts.Workers = defaultSweepWorkers
	}
	if opts.Workers > maxSweepWorkers {
		opts.Workers = maxSweepWorkers
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Sweeper{users: users, repairer: repairer, opts: opts, logger: shared.WithLogger(logger, "component", "sweeper")}
}

// Run sweeps every user once. A cancelled context stops the sweep early and is returned alongside the
// partial result.
func (s *Sweeper) Run(ctx context.Context, progress chan<- ProgressUpdate) (*SweepResult, error) {
	start := time.Now()

	ids, err := s.users.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	sendProgress(progress, listUsersUpdate(len(ids)))

	limit := rate.Inf
	if s.opts.RateLimit > 0 {
		limit = rate.Limit(s.opts.RateLimit)
	}
	limiter := rate.NewLimiter(limit, 1)

	jobs := make(chan string)
	results := make(chan UserSweepResult, len(ids))

	var wg sync.WaitGroup
	for range s.opts.Workers {
		wg.Add(1)
		go s.worker(ctx, &wg, limiter, jobs, results)
	}

	go func() {
		defer close(jobs)
		for _, id := range ids {
			select {
			case <-ctx.Done():
				return
			case jobs <- id:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	result := &SweepResult{}
	for res := range results {
		result.Scanned++
		result.Repaired += res.Repaired
		if res.Err != nil {
			result.Failed++
			result.Failures = append(result.Failures, res)
		}
		sendProgress(progress, sweptUserUpdate(result.Scanned, len(ids), res))
	}
	result.Duration = time.Since(start)

	s.logger.Info("sweep finished",
		"scanned", result.Scanned, "repaired", result.Repaired, "failed", result.Failed, "took", result.Duration)
	return result, ctx.Err()
}

func (s *Sweeper) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan string,
	results chan<- UserSweepResult,
) {
	defer wg.Done()

	for id := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			results <- UserSweepResult{UserID: id, Err: fmt.Errorf("rate limit: %w", err)}
			continue
		}

		n, err := s.repairer.SweepUser(ctx, id)
		if err != nil {
			s.logger.Warn("user sweep failed", "user", id, "error", err)
		}
		results <- UserSweepResult{UserID: id, Repaired: n, Err: err}
	}
}

// Start runs a sweep immediately and then every interval until ctx ends.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.logger.Warn("sweep interval not set, periodic reconciliation disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Run(ctx, nil); err != nil && ctx.Err() == nil {
			s.logger.Error("sweep failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
