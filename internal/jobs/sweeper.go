package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fulfillment-platform/portal/internal/application"
	"github.com/fulfillment-platform/portal/internal/domain"
	"github.com/fulfillment-platform/portal/pkg/logging"
)

// SweeperConfig holds retention sweep configuration
type SweeperConfig struct {
	Interval         time.Duration
	PhotoRetention   time.Duration
	WebhookRetention time.Duration
	BatchSize        int64
}

// DefaultSweeperConfig returns the standard retention windows: QC photos and
// webhook dedup rows are kept for thirty days
func DefaultSweeperConfig() *SweeperConfig {
	return &SweeperConfig{
		Interval:         1 * time.Hour,
		PhotoRetention:   domain.PhotoRetentionDays * 24 * time.Hour,
		WebhookRetention: 30 * 24 * time.Hour,
		BatchSize:        500,
	}
}

// Sweeper runs the periodic retention jobs: expired QC photos, old webhook
// dedup rows, and lapsed OAuth state nonces
type Sweeper struct {
	config  *SweeperConfig
	photos  domain.PhotoRepository
	storage domain.PhotoStorage
	sync    *application.SyncService
	logger  *logging.Logger

	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// NewSweeper creates a new Sweeper
func NewSweeper(
	config *SweeperConfig,
	photos domain.PhotoRepository,
	storage domain.PhotoStorage,
	syncService *application.SyncService,
	logger *logging.Logger,
) *Sweeper {
	if config == nil {
		config = DefaultSweeperConfig()
	}
	return &Sweeper{
		config:    config,
		photos:    photos,
		storage:   storage,
		sync:      syncService,
		logger:    logger,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start starts the sweep loop
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sweeper already running")
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("Starting retention sweeper",
		"interval", s.config.Interval,
		"photoRetention", s.config.PhotoRetention,
	)

	go s.run(ctx)
	return nil
}

// Stop stops the sweep loop
func (s *Sweeper) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("sweeper not running")
	}
	s.mu.Unlock()

	close(s.stopCh)
	<-s.stoppedCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("Retention sweeper stopped")
	return nil
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.stoppedCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce executes one sweep pass
func (s *Sweeper) RunOnce(ctx context.Context) {
	now := time.Now().UTC()

	s.sweepPhotos(ctx, now)

	if pruned, err := s.sync.PruneProcessedWebhooks(ctx, now.Add(-s.config.WebhookRetention)); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to prune processed webhooks")
	} else if pruned > 0 {
		s.logger.WithContext(ctx).Info("Pruned processed webhooks", "count", pruned)
	}

	if removed, err := s.sync.CleanupOAuthStates(ctx, now); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to clean up oauth states")
	} else if removed > 0 {
		s.logger.WithContext(ctx).Info("Removed expired oauth states", "count", removed)
	}
}

// sweepPhotos deletes photos past the retention window. The storage object
// goes first; its metadata row is only removed once the object is gone so a
// storage failure leaves the photo visible for the next pass.
func (s *Sweeper) sweepPhotos(ctx context.Context, now time.Time) {
	cutoff := now.Add(-s.config.PhotoRetention)

	photos, err := s.photos.FindOlderThan(ctx, cutoff, s.config.BatchSize)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to list expired photos")
		return
	}
	if len(photos) == 0 {
		return
	}

	deleted := 0
	for _, photo := range photos {
		if err := s.storage.Delete(ctx, photo.FilePath); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to delete photo object",
				"photoId", photo.ID.Hex(),
				"filePath", photo.FilePath,
			)
			continue
		}

		if err := s.photos.Delete(ctx, photo.ID.Hex()); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to delete photo metadata",
				"photoId", photo.ID.Hex(),
			)
			continue
		}
		deleted++
	}

	s.logger.WithContext(ctx).Info("Photo retention sweep finished",
		"expired", len(photos),
		"deleted", deleted,
	)
}
