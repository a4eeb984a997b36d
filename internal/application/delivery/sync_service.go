package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
	"github.com/restaurant-platform/backend/internal/infrastructure/lock"
	"github.com/restaurant-platform/backend/internal/infrastructure/metrics"
	"github.com/restaurant-platform/backend/internal/infrastructure/resilience"
	"github.com/google/uuid"
)

const (
	// defaultBatchSize bounds the item count per provider push.
	defaultBatchSize = 50
	// syncLockTTL caps how long a crashed worker keeps the branch locked.
	syncLockTTL = 10 * time.Minute
)

// SyncService runs menu synchronization jobs. Full and partial syncs are
// exclusive per (tenant, branch, provider); availability syncs run alongside
// anything. StartSync creates and claims the job; Execute does the pushing
// and is meant to run on its own goroutine.
type SyncService struct {
	jobs     delivery.MenuSyncJobRepository
	configs  delivery.ProviderConfigRepository
	mappings delivery.EntityMappingRepository
	menus    delivery.MenuReader
	registry delivery.AdapterRegistry
	tokens   *TokenSource
	locker   lock.Locker
	retry    resilience.Policy
	batch    int
	metrics  *metrics.Metrics
	logger   *zap.Logger

	mu       sync.Mutex
	releases map[uuid.UUID]func()
}

// NewSyncService creates a sync service with the default retry policy and
// batch size.
func NewSyncService(
	jobs delivery.MenuSyncJobRepository,
	configs delivery.ProviderConfigRepository,
	mappings delivery.EntityMappingRepository,
	menus delivery.MenuReader,
	registry delivery.AdapterRegistry,
	tokens *TokenSource,
	locker lock.Locker,
	m *metrics.Metrics,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		jobs:     jobs,
		configs:  configs,
		mappings: mappings,
		menus:    menus,
		registry: registry,
		tokens:   tokens,
		locker:   locker,
		retry:    resilience.DefaultPolicy(),
		batch:    defaultBatchSize,
		metrics:  m,
		logger:   logger.Named("menu-sync"),
		releases: make(map[uuid.UUID]func()),
	}
}

// StartSync validates the request, claims the branch lock for exclusive
// kinds and persists a pending job. The caller runs Execute afterwards,
// typically on a fresh goroutine.
func (s *SyncService) StartSync(ctx context.Context, req StartSyncRequest) (*delivery.MenuSyncJob, error) {
	if !req.Kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown sync kind %q", delivery.ErrValidation, req.Kind)
	}
	if req.Kind == delivery.SyncKindPartial && len(req.ItemIDs) == 0 {
		return nil, fmt.Errorf("%w: partial sync requires item ids", delivery.ErrValidation)
	}
	if req.Kind == delivery.SyncKindAvailability && len(req.Changes) == 0 {
		return nil, fmt.Errorf("%w: availability sync requires changes", delivery.ErrValidation)
	}
	if _, err := s.registry.Adapter(req.Provider); err != nil {
		return nil, err
	}

	cfg, err := s.configs.FindByTriple(ctx, req.TenantID, req.BranchID, req.Provider)
	if err != nil {
		return nil, err
	}
	if !cfg.IsActive {
		return nil, delivery.ErrConfigInactive
	}

	job, err := delivery.NewMenuSyncJob(req.TenantID, req.BranchID, req.Provider, req.Kind)
	if err != nil {
		return nil, err
	}

	if req.Kind.ExclusiveLock() {
		if _, err := s.jobs.FindRunning(ctx, req.TenantID, req.BranchID, req.Provider); err == nil {
			return nil, delivery.ErrSyncInProgress
		} else if !errors.Is(err, delivery.ErrSyncJobNotFound) {
			return nil, err
		}

		key := syncLockKey(req.TenantID, req.BranchID, req.Provider)
		ok, release, err := s.locker.TryAcquire(ctx, key, syncLockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, delivery.ErrSyncInProgress
		}
		s.mu.Lock()
		s.releases[job.ID] = release
		s.mu.Unlock()
	}

	if err := s.jobs.Save(ctx, job); err != nil {
		s.releaseLock(job.ID)
		return nil, err
	}

	s.logger.Info("sync job created",
		zap.String("job_id", job.ID.String()),
		zap.String("provider", req.Provider.String()),
		zap.String("kind", req.Kind.String()))
	return job, nil
}

// Execute drives a job created by StartSync to a terminal state. It always
// releases the branch lock.
func (s *SyncService) Execute(ctx context.Context, job *delivery.MenuSyncJob, req StartSyncRequest) error {
	defer s.releaseLock(job.ID)

	if req.Kind == delivery.SyncKindAvailability {
		return s.executeAvailability(ctx, job, req)
	}
	return s.executeMenu(ctx, job, req)
}

func (s *SyncService) executeMenu(ctx context.Context, job *delivery.MenuSyncJob, req StartSyncRequest) error {
	adapter, err := s.registry.Adapter(req.Provider)
	if err != nil {
		return s.failJob(ctx, job, err)
	}
	cfg, err := s.configs.FindByTriple(ctx, req.TenantID, req.BranchID, req.Provider)
	if err != nil {
		return s.failJob(ctx, job, err)
	}

	menu, err := s.menus.Load(ctx, req.TenantID, req.BranchID)
	if err != nil {
		return s.failJob(ctx, job, fmt.Errorf("load menu: %w", err))
	}

	var items []delivery.MenuItem
	if req.Kind == delivery.SyncKindPartial {
		items = menu.ItemsByID(req.ItemIDs)
	} else {
		items = menu.Items()
	}

	// Pick up a cancel issued between job creation and execution, before the
	// first save overwrites the persisted flag.
	s.cancelRequested(ctx, job)

	if err := job.Start(len(items)); err != nil {
		return err
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return err
	}

	known, err := s.mappings.FindActiveForProvider(ctx, req.TenantID, req.Provider)
	if err != nil {
		s.logger.Warn("loading entity mappings failed, will map by internal id",
			zap.String("job_id", job.ID.String()), zap.Error(err))
		known = map[uuid.UUID]delivery.EntityMapping{}
	}

	for start := 0; start < len(items); start += s.batch {
		if s.cancelRequested(ctx, job) {
			break
		}

		end := start + s.batch
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		payload, err := adapter.TransformMenu(cfg.StoreID, chunk)
		if err == nil {
			err = s.pushWithRetry(ctx, req, func(tokens delivery.TokenSet) error {
				return adapter.PushMenu(ctx, tokens, payload)
			})
		}

		if err != nil {
			failures := make([]delivery.ItemSyncError, len(chunk))
			for i, item := range chunk {
				failures[i] = delivery.ItemSyncError{ItemID: item.ID, Message: err.Error()}
			}
			if rerr := job.RecordBatch(0, failures); rerr != nil {
				return rerr
			}
			s.logger.Warn("menu batch failed",
				zap.String("job_id", job.ID.String()),
				zap.Int("batch_size", len(chunk)),
				zap.Error(err))
		} else {
			if rerr := job.RecordBatch(len(chunk), nil); rerr != nil {
				return rerr
			}
			s.ensureMappings(ctx, req, chunk, known)
		}

		if err := s.jobs.Save(ctx, job); err != nil {
			return err
		}
	}

	if err := job.Finish(); err != nil {
		return err
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return err
	}
	s.metrics.SyncJobsFinished.WithLabelValues(job.Provider.String(), job.Status.String()).Inc()
	s.metrics.SyncItemsPushed.WithLabelValues(job.Provider.String()).Add(float64(job.ItemsProcessed))

	s.logger.Info("sync job finished",
		zap.String("job_id", job.ID.String()),
		zap.String("status", job.Status.String()),
		zap.Int("processed", job.ItemsProcessed),
		zap.Int("failed", job.ItemsFailed))
	return nil
}

func (s *SyncService) executeAvailability(ctx context.Context, job *delivery.MenuSyncJob, req StartSyncRequest) error {
	adapter, err := s.registry.Adapter(req.Provider)
	if err != nil {
		return s.failJob(ctx, job, err)
	}
	cfg, err := s.configs.FindByTriple(ctx, req.TenantID, req.BranchID, req.Provider)
	if err != nil {
		return s.failJob(ctx, job, err)
	}

	if err := job.Start(len(req.Changes)); err != nil {
		return err
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return err
	}

	external := make(map[uuid.UUID]string)
	if known, err := s.mappings.FindActiveForProvider(ctx, req.TenantID, req.Provider); err == nil {
		for internalID, m := range known {
			external[internalID] = m.ExternalID
		}
	}

	payload, err := adapter.TransformAvailability(cfg.StoreID, req.Changes, external)
	if err == nil {
		err = s.pushWithRetry(ctx, req, func(tokens delivery.TokenSet) error {
			return adapter.PushMenu(ctx, tokens, payload)
		})
	}

	if err != nil {
		failures := make([]delivery.ItemSyncError, len(req.Changes))
		for i, change := range req.Changes {
			failures[i] = delivery.ItemSyncError{ItemID: change.ItemID, Message: err.Error()}
		}
		if rerr := job.RecordBatch(0, failures); rerr != nil {
			return rerr
		}
	} else if rerr := job.RecordBatch(len(req.Changes), nil); rerr != nil {
		return rerr
	}

	if err := job.Finish(); err != nil {
		return err
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return err
	}
	s.metrics.SyncJobsFinished.WithLabelValues(job.Provider.String(), job.Status.String()).Inc()
	return nil
}

// pushWithRetry runs one provider push with the shared forced-refresh
// handling, so a revoked token does not fail the batch.
func (s *SyncService) pushWithRetry(ctx context.Context, req StartSyncRequest, push func(delivery.TokenSet) error) error {
	return pushWithFreshTokens(ctx, s.retry, s.tokens, req.TenantID, req.BranchID, req.Provider, push)
}

// ensureMappings records an active entity mapping for every item that has
// none yet. Adapters address items by internal id on the wire, so the
// external id equals the internal one.
func (s *SyncService) ensureMappings(ctx context.Context, req StartSyncRequest, items []delivery.MenuItem, known map[uuid.UUID]delivery.EntityMapping) {
	for _, item := range items {
		if _, ok := known[item.ID]; ok {
			continue
		}
		mapping, err := delivery.NewEntityMapping(req.TenantID, req.Provider, delivery.EntityKindItem, item.ID, item.ID.String())
		if err != nil {
			continue
		}
		if err := s.mappings.Save(ctx, mapping); err != nil {
			s.logger.Warn("saving entity mapping failed",
				zap.String("item_id", item.ID.String()), zap.Error(err))
			continue
		}
		known[item.ID] = *mapping
	}
}

// cancelRequested re-reads the job row so a cancel issued through another
// instance is honoured between batches.
func (s *SyncService) cancelRequested(ctx context.Context, job *delivery.MenuSyncJob) bool {
	if job.CancelRequested {
		return true
	}
	fresh, err := s.jobs.FindByID(ctx, job.ID)
	if err != nil {
		return false
	}
	if fresh.CancelRequested {
		job.CancelRequested = true
	}
	return job.CancelRequested
}

func (s *SyncService) failJob(ctx context.Context, job *delivery.MenuSyncJob, cause error) error {
	job.Fail(cause.Error())
	if err := s.jobs.Save(ctx, job); err != nil {
		return err
	}
	s.logger.Error("sync job failed before first batch",
		zap.String("job_id", job.ID.String()), zap.Error(cause))
	return cause
}

func (s *SyncService) releaseLock(jobID uuid.UUID) {
	s.mu.Lock()
	release, ok := s.releases[jobID]
	delete(s.releases, jobID)
	s.mu.Unlock()
	if ok {
		release()
	}
}

func syncLockKey(tenantID, branchID uuid.UUID, provider delivery.ProviderCode) string {
	return fmt.Sprintf("sync:%s:%s:%s", tenantID, branchID, provider)
}

// CancelSync flags a job for cooperative cancellation. The in-flight batch
// finishes; later batches are skipped.
func (s *SyncService) CancelSync(ctx context.Context, tenantID, jobID uuid.UUID) (*delivery.MenuSyncJob, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.TenantID != tenantID {
		return nil, delivery.ErrSyncJobNotFound
	}
	if err := job.RequestCancel(); err != nil {
		return nil, err
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// GetJob returns one job scoped to the tenant.
func (s *SyncService) GetJob(ctx context.Context, tenantID, jobID uuid.UUID) (*delivery.MenuSyncJob, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.TenantID != tenantID {
		return nil, delivery.ErrSyncJobNotFound
	}
	return job, nil
}

// ListRecent returns the latest jobs for a triple, newest first.
func (s *SyncService) ListRecent(ctx context.Context, tenantID, branchID uuid.UUID, provider delivery.ProviderCode, limit int) ([]delivery.MenuSyncJob, error) {
	return s.jobs.FindRecent(ctx, tenantID, branchID, provider, limit)
}
