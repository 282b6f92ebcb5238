package port

import (
	"context"

	"github.com/google/uuid"

	"ledgerlens/internal/domain"
)

// DuplicateLinkRepository persists duplicate-to-original provenance links.
type DuplicateLinkRepository interface {
	// Create inserts a link. Returns domain.ErrAlreadyLinked if the duplicate
	// already has a link, domain.ErrSelfLink if duplicate == original.
	Create(ctx context.Context, link *domain.DuplicateLink) error

	// GetByDuplicate returns the link for a duplicate invoice, or
	// domain.ErrNotFound when the invoice is not linked.
	GetByDuplicate(ctx context.Context, duplicateID uuid.UUID) (*domain.DuplicateLink, error)

	// ListByOriginal returns all links pointing at an original, oldest first.
	ListByOriginal(ctx context.Context, originalID uuid.UUID) ([]domain.DuplicateLink, error)
}

// VerificationCacheRepository persists registry verification results by tax ID.
type VerificationCacheRepository interface {
	// Lookup returns the entry for a tax ID and increments its hit counter
	// as an observable side effect. Returns domain.ErrCacheMiss when absent.
	Lookup(ctx context.Context, taxID string) (*domain.CacheEntry, error)

	// Upsert inserts or updates the entry keyed by tax ID.
	Upsert(ctx context.Context, entry *domain.CacheEntry) error

	// List returns entries matching an optional search term, most recently
	// verified first.
	List(ctx context.Context, search string) ([]domain.CacheEntry, error)
}

// CredentialUsageRepository tracks pooled extraction credentials by hash.
type CredentialUsageRepository interface {
	// EnsureTracked creates a usage record for the hash if none exists.
	EnsureTracked(ctx context.Context, keyHash string) error

	// Statuses returns usage records for the given hashes.
	Statuses(ctx context.Context, keyHashes []string) ([]domain.CredentialUsage, error)

	// RecordUse increments the usage counter and stamps last-used.
	// Returns the new usage count.
	RecordUse(ctx context.Context, keyHash string) (int64, error)

	// MarkExhausted deactivates a credential and stamps exhausted-at.
	MarkExhausted(ctx context.Context, keyHash string) error

	// CountActive returns how many of the given credentials are active.
	CountActive(ctx context.Context, keyHashes []string) (int, error)

	// ResetAll reactivates the given credentials and clears exhausted
	// timestamps. Returns the number of records reactivated.
	ResetAll(ctx context.Context, keyHashes []string) (int64, error)
}

// HealthScoreRepository persists per-invoice health scores.
type HealthScoreRepository interface {
	// Upsert inserts or overwrites the score for score.InvoiceID.
	Upsert(ctx context.Context, score *domain.HealthScore) error
	GetByInvoice(ctx context.Context, invoiceID uuid.UUID) (*domain.HealthScore, error)
}

// BatchRepository persists bulk-upload batches.
type BatchRepository interface {
	Create(ctx context.Context, batch *domain.Batch) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Batch, error)

	// RecordResult atomically increments the processed or failed counter and
	// recomputes the batch status. Returns the updated batch.
	RecordResult(ctx context.Context, batchID uuid.UUID, failed bool) (*domain.Batch, error)
}

// TaxCodeRepository loads the code-to-rate reference table.
type TaxCodeRepository interface {
	LoadAll(ctx context.Context) ([]domain.TaxCode, error)
}
