package keypool

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"ledgerlens/internal/domain"
	"ledgerlens/internal/port"
)

// Credential pairs a raw API key with the hash that identifies it in storage.
// Only the hash is ever persisted or logged.
type Credential struct {
	Key  string
	Hash string
}

// HashKey returns the hex-encoded SHA-256 digest of a raw API key.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Pool rotates extraction API keys round-robin, skipping keys that have been
// marked exhausted until the pool is reset.
type Pool struct {
	mu     sync.Mutex
	keys   []Credential
	repo   port.CredentialUsageRepository
	cursor int
}

// NewPool builds a pool from the configured raw keys and ensures each key's
// usage row exists.
func NewPool(ctx context.Context, rawKeys []string, repo port.CredentialUsageRepository) (*Pool, error) {
	if len(rawKeys) == 0 {
		return nil, fmt.Errorf("keypool: no extraction keys configured")
	}

	keys := make([]Credential, 0, len(rawKeys))
	for _, raw := range rawKeys {
		cred := Credential{Key: raw, Hash: HashKey(raw)}
		if err := repo.EnsureTracked(ctx, cred.Hash); err != nil {
			return nil, fmt.Errorf("keypool: tracking credential: %w", err)
		}
		keys = append(keys, cred)
	}

	return &Pool{keys: keys, repo: repo}, nil
}

// Acquire picks the next active credential round-robin and records the use.
// The cursor advances regardless of which key is returned, so load spreads
// evenly across the active subset.
func (p *Pool) Acquire(ctx context.Context) (*Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	active, err := p.activeLocked(ctx)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, domain.ErrNoActiveCredentials
	}

	cred := active[p.cursor%len(active)]
	p.cursor++

	if _, err := p.repo.RecordUse(ctx, cred.Hash); err != nil {
		return nil, fmt.Errorf("keypool: recording use: %w", err)
	}
	return &cred, nil
}

// MarkExhausted deactivates a credential, typically after a quota rejection.
func (p *Pool) MarkExhausted(ctx context.Context, hash string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.repo.MarkExhausted(ctx, hash); err != nil {
		return fmt.Errorf("keypool: marking exhausted: %w", err)
	}

	remaining, err := p.repo.CountActive(ctx, p.hashes())
	if err != nil {
		return fmt.Errorf("keypool: counting active: %w", err)
	}
	if remaining == 0 {
		log.Errorf("keypool: all %d extraction credentials exhausted", len(p.keys))
	} else {
		log.Printf("keypool: credential exhausted, %d remaining", remaining)
	}
	return nil
}

// Reset reactivates every credential and rewinds the rotation cursor.
func (p *Pool) Reset(ctx context.Context) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	reactivated, err := p.repo.ResetAll(ctx, p.hashes())
	if err != nil {
		return 0, fmt.Errorf("keypool: resetting: %w", err)
	}
	p.cursor = 0
	log.Printf("keypool: reset %d credentials", reactivated)
	return reactivated, nil
}

// Statuses returns the stored usage rows for the pool's keys, in pool order.
func (p *Pool) Statuses(ctx context.Context) ([]domain.CredentialUsage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	usages, err := p.repo.Statuses(ctx, p.hashes())
	if err != nil {
		return nil, fmt.Errorf("keypool: fetching statuses: %w", err)
	}

	byHash := make(map[string]domain.CredentialUsage, len(usages))
	for _, u := range usages {
		byHash[u.KeyHash] = u
	}
	ordered := make([]domain.CredentialUsage, 0, len(p.keys))
	for _, cred := range p.keys {
		if u, ok := byHash[cred.Hash]; ok {
			ordered = append(ordered, u)
		}
	}
	return ordered, nil
}

// Size returns the number of configured credentials.
func (p *Pool) Size() int {
	return len(p.keys)
}

// activeLocked filters the configured keys down to those still active,
// preserving configuration order.
func (p *Pool) activeLocked(ctx context.Context) ([]Credential, error) {
	usages, err := p.repo.Statuses(ctx, p.hashes())
	if err != nil {
		return nil, fmt.Errorf("keypool: fetching statuses: %w", err)
	}

	activeHashes := make(map[string]bool, len(usages))
	for _, u := range usages {
		if u.IsActive {
			activeHashes[u.KeyHash] = true
		}
	}

	var active []Credential
	for _, cred := range p.keys {
		if activeHashes[cred.Hash] {
			active = append(active, cred)
		}
	}
	return active, nil
}

func (p *Pool) hashes() []string {
	hashes := make([]string, len(p.keys))
	for i, cred := range p.keys {
		hashes[i] = cred.Hash
	}
	return hashes
}
