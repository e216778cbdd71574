package apikeys

import (
	"context"
	"crypto/sha256"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/synura/agency-api/pkg/logging"
)

// Store persists keys. *PostgresStore satisfies it.
type Store interface {
	Insert(ctx context.Context, k Key, lookupKey, hash string) error
	Candidates(ctx context.Context, lookupKey string) ([]Credential, error)
	TouchUsage(ctx context.Context, keyID string, at time.Time) error
	List(ctx context.Context) ([]Key, error)
	Deactivate(ctx context.Context, keyID string, at time.Time) error
	Delete(ctx context.Context, keyID string) error
}

// Config wires a Service.
type Config struct {
	Store Store
	// Cost is the bcrypt cost for new keys; DefaultCost when zero.
	Cost int
	// CacheTTL is how long a verified key skips bcrypt. Zero disables it.
	CacheTTL time.Duration
	Logger   *logging.Logger
	Now      func() time.Time
}

// Service creates, verifies and manages API keys.
type Service struct {
	store  Store
	cost   int
	ttl    time.Duration
	logger *logging.Logger
	now    func() time.Time

	mu       sync.Mutex
	verified map[[sha256.Size]byte]verifiedKey
}

type verifiedKey struct {
	keyID   string
	expires time.Time
}

// NewService builds a Service.
func NewService(cfg Config) *Service {
	if cfg.Cost == 0 {
		cfg.Cost = DefaultCost
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		store:    cfg.Store,
		cost:     cfg.Cost,
		ttl:      cfg.CacheTTL,
		logger:   cfg.Logger,
		now:      cfg.Now,
		verified: make(map[[sha256.Size]byte]verifiedKey),
	}
}

// Created is returned once per key; Key is the only copy of the secret.
type Created struct {
	KeyID       string    `json:"keyId"`
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Created     time.Time `json:"created"`
}

// Create mints and stores a new key.
func (s *Service) Create(ctx context.Context, name, description string) (Created, error) {
	if s == nil || s.store == nil {
		return Created{}, ErrNotConfigured
	}
	gen, err := Generate(s.cost)
	if err != nil {
		return Created{}, err
	}
	now := s.now().UTC()
	if err := s.store.Insert(ctx, Key{
		KeyID:       gen.KeyID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
	}, gen.LookupKey, gen.Hash); err != nil {
		return Created{}, err
	}
	s.logger.Info("api key created", "key_id", gen.KeyID, "name", name)
	return Created{
		KeyID:       gen.KeyID,
		Key:         gen.Secret,
		Name:        name,
		Description: description,
		Created:     now,
	}, nil
}

// Authenticate resolves key to its key id and records the use. Unknown,
// malformed and inactive keys return ErrInvalidKey; other errors are storage
// failures.
func (s *Service) Authenticate(ctx context.Context, key string) (string, error) {
	if s == nil || s.store == nil {
		return "", ErrNotConfigured
	}
	lookup, ok := LookupKey(key)
	if !ok {
		return "", ErrInvalidKey
	}

	digest := sha256.Sum256([]byte(key))
	keyID, ok := s.cached(digest)
	if !ok {
		creds, err := s.store.Candidates(ctx, lookup)
		if err != nil {
			return "", err
		}
		for _, c := range creds {
			if Verify(key, c.Hash) {
				keyID = c.KeyID
				break
			}
		}
		if keyID == "" {
			return "", ErrInvalidKey
		}
		s.remember(digest, keyID)
	}

	if err := s.store.TouchUsage(ctx, keyID, s.now().UTC()); err != nil {
		s.logger.Warn("api key usage update failed", "key_id", keyID, "error", err)
	}
	return keyID, nil
}

func (s *Service) cached(digest [sha256.Size]byte) (string, bool) {
	if s.ttl <= 0 {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.verified[digest]
	if !ok {
		return "", false
	}
	if s.now().After(v.expires) {
		delete(s.verified, digest)
		return "", false
	}
	return v.keyID, true
}

func (s *Service) remember(digest [sha256.Size]byte, keyID string) {
	if s.ttl <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verified[digest] = verifiedKey{keyID: keyID, expires: s.now().Add(s.ttl)}
}

func (s *Service) forget(keyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for digest, v := range s.verified {
		if v.keyID == keyID {
			delete(s.verified, digest)
		}
	}
}

// List returns every key without secrets.
func (s *Service) List(ctx context.Context) ([]Key, error) {
	if s == nil || s.store == nil {
		return nil, ErrNotConfigured
	}
	return s.store.List(ctx)
}

// Deactivate stops keyID from authenticating but keeps its history.
func (s *Service) Deactivate(ctx context.Context, keyID string) error {
	if s == nil || s.store == nil {
		return ErrNotConfigured
	}
	if err := s.store.Deactivate(ctx, keyID, s.now().UTC()); err != nil {
		return err
	}
	s.forget(keyID)
	s.logger.Info("api key deactivated", "key_id", keyID)
	return nil
}

// Delete removes keyID permanently.
func (s *Service) Delete(ctx context.Context, keyID string) error {
	if s == nil || s.store == nil {
		return ErrNotConfigured
	}
	if err := s.store.Delete(ctx, keyID); err != nil {
		return err
	}
	s.forget(keyID)
	s.logger.Info("api key deleted", "key_id", keyID)
	return nil
}

// Stats summarises key usage.
type Stats struct {
	Total      int        `json:"total"`
	Active     int        `json:"active"`
	Inactive   int        `json:"inactive"`
	TotalUsage int64      `json:"totalUsage"`
	TopUsed    []KeyUsage `json:"topUsed"`
}

// KeyUsage is one row of Stats.TopUsed.
type KeyUsage struct {
	Name       string     `json:"name"`
	UsageCount int64      `json:"usageCount"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

const topUsedLimit = 5

// Stats counts keys and lists the five most used.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	keys, err := s.List(ctx)
	if err != nil {
		return Stats{TopUsed: []KeyUsage{}}, err
	}
	return Summarize(keys), nil
}

// Summarize builds Stats from a key listing.
func Summarize(keys []Key) Stats {
	st := Stats{Total: len(keys), TopUsed: []KeyUsage{}}
	for _, k := range keys {
		if k.IsActive {
			st.Active++
		} else {
			st.Inactive++
		}
		st.TotalUsage += k.UsageCount
	}

	sorted := make([]Key, len(keys))
	copy(sorted, keys)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].UsageCount > sorted[j].UsageCount })
	for i := 0; i < len(sorted) && i < topUsedLimit; i++ {
		st.TopUsed = append(st.TopUsed, KeyUsage{
			Name:       sorted[i].Name,
			UsageCount: sorted[i].UsageCount,
			LastUsedAt: sorted[i].LastUsedAt,
		})
	}
	return st
}

// IsInvalid reports whether err means the presented key was rejected.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidKey)
}
