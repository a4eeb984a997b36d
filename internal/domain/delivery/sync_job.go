package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SyncKind / SyncJobStatus
// ---------------------------------------------------------------------------

// SyncKind distinguishes the three menu synchronization flavours.
type SyncKind string

const (
	// SyncKindFull pushes the whole menu tree.
	SyncKindFull SyncKind = "full"
	// SyncKindPartial pushes only the given changed items.
	SyncKindPartial SyncKind = "partial"
	// SyncKindAvailability flips availability flags with a minimal payload.
	SyncKindAvailability SyncKind = "availability"
)

// IsValid returns true if the kind is known.
func (k SyncKind) IsValid() bool {
	switch k {
	case SyncKindFull, SyncKindPartial, SyncKindAvailability:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncKind.
func (k SyncKind) String() string { return string(k) }

// ExclusiveLock reports whether this kind takes the per-branch sync lock.
// Availability syncs are idempotent and commutative, so they run alongside
// anything.
func (k SyncKind) ExclusiveLock() bool { return k != SyncKindAvailability }

// SyncJobStatus is the lifecycle of a MenuSyncJob.
type SyncJobStatus string

const (
	SyncJobPending        SyncJobStatus = "pending"
	SyncJobRunning        SyncJobStatus = "running"
	SyncJobCompleted      SyncJobStatus = "completed"
	SyncJobFailed         SyncJobStatus = "failed"
	SyncJobPartialFailure SyncJobStatus = "partial_failure"
	SyncJobCancelled      SyncJobStatus = "cancelled"
)

// IsTerminal returns true once the job may no longer change.
func (s SyncJobStatus) IsTerminal() bool {
	switch s {
	case SyncJobCompleted, SyncJobFailed, SyncJobPartialFailure, SyncJobCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncJobStatus.
func (s SyncJobStatus) String() string { return string(s) }

// ---------------------------------------------------------------------------
// MenuSyncJob Entity
// ---------------------------------------------------------------------------

// ItemSyncError records why one item failed within a sync job.
type ItemSyncError struct {
	ItemID  uuid.UUID `json:"item_id"`
	Message string    `json:"message"`
}

// MenuSyncJob tracks one synchronization attempt. Jobs are immutable once
// terminal; a retry creates a new job so history is preserved.
type MenuSyncJob struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	BranchID       uuid.UUID
	Provider       ProviderCode
	Kind           SyncKind
	Status         SyncJobStatus
	ItemsTotal     int
	ItemsProcessed int
	ItemsFailed    int
	ItemErrors     []ItemSyncError
	// CancelRequested is the cooperative cancellation flag: in-flight batches
	// finish, subsequent batches are skipped.
	CancelRequested bool
	StartedAt       *time.Time
	FinishedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewMenuSyncJob creates a pending job.
func NewMenuSyncJob(tenantID, branchID uuid.UUID, provider ProviderCode, kind SyncKind) (*MenuSyncJob, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if branchID == uuid.Nil {
		return nil, ErrInvalidBranchID
	}
	if !provider.IsValid() {
		return nil, ErrInvalidProviderCode
	}
	if !kind.IsValid() {
		return nil, errors.New("delivery: invalid sync kind")
	}

	now := time.Now()
	return &MenuSyncJob{
		ID:        uuid.New(),
		TenantID:  tenantID,
		BranchID:  branchID,
		Provider:  provider,
		Kind:      kind,
		Status:    SyncJobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Start moves the job to running and fixes the item total.
func (j *MenuSyncJob) Start(itemsTotal int) error {
	if j.Status != SyncJobPending {
		return ErrSyncJobTerminal
	}
	now := time.Now()
	j.Status = SyncJobRunning
	j.ItemsTotal = itemsTotal
	j.StartedAt = &now
	j.UpdatedAt = now
	return nil
}

// RecordBatch accumulates the outcome of one batch. Invariant:
// ItemsProcessed + ItemsFailed never exceeds ItemsTotal.
func (j *MenuSyncJob) RecordBatch(succeeded int, failures []ItemSyncError) error {
	if j.Status != SyncJobRunning {
		return ErrSyncJobTerminal
	}
	if j.ItemsProcessed+j.ItemsFailed+succeeded+len(failures) > j.ItemsTotal {
		return errors.New("delivery: batch result exceeds job item total")
	}
	j.ItemsProcessed += succeeded
	j.ItemsFailed += len(failures)
	j.ItemErrors = append(j.ItemErrors, failures...)
	j.UpdatedAt = time.Now()
	return nil
}

// RequestCancel flags the job for cooperative cancellation.
func (j *MenuSyncJob) RequestCancel() error {
	if j.Status.IsTerminal() {
		return ErrSyncJobTerminal
	}
	j.CancelRequested = true
	j.UpdatedAt = time.Now()
	return nil
}

// Finish settles the terminal status from the accumulated counters.
func (j *MenuSyncJob) Finish() error {
	if j.Status != SyncJobRunning {
		return ErrSyncJobTerminal
	}
	now := time.Now()
	switch {
	case j.CancelRequested && j.ItemsProcessed+j.ItemsFailed < j.ItemsTotal:
		j.Status = SyncJobCancelled
	case j.ItemsFailed == 0:
		j.Status = SyncJobCompleted
	case j.ItemsProcessed > 0:
		j.Status = SyncJobPartialFailure
	default:
		j.Status = SyncJobFailed
	}
	j.FinishedAt = &now
	j.UpdatedAt = now
	return nil
}

// Fail terminates the job before any batch ran, e.g. when the menu could not
// be loaded.
func (j *MenuSyncJob) Fail(reason string) {
	now := time.Now()
	j.Status = SyncJobFailed
	if reason != "" {
		j.ItemErrors = append(j.ItemErrors, ItemSyncError{Message: reason})
	}
	j.FinishedAt = &now
	j.UpdatedAt = now
}

// ---------------------------------------------------------------------------
// MenuSyncJobRepository
// ---------------------------------------------------------------------------

// MenuSyncJobRepository persists sync jobs.
type MenuSyncJobRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*MenuSyncJob, error)

	// FindRunning returns the running non-availability job for a triple, or
	// ErrSyncJobNotFound.
	FindRunning(ctx context.Context, tenantID, branchID uuid.UUID, provider ProviderCode) (*MenuSyncJob, error)

	// FindRecent lists the latest jobs for a triple, newest first.
	FindRecent(ctx context.Context, tenantID, branchID uuid.UUID, provider ProviderCode, limit int) ([]MenuSyncJob, error)

	Save(ctx context.Context, job *MenuSyncJob) error
}
