// Package verification holds the short-lived numeric codes used for email
// confirmation and password reset. Codes live in process memory; swap the
// CodeStore implementation for a shared cache when running more than one
// instance.
package verification

import (
	"sync"
	"time"

	"github.com/showtix/auth_service/internal/apperr"
)

// Namespace partitions codes by purpose so the same email can hold an email
// verification code and a password reset code at the same time.
type Namespace string

const (
	NamespaceEmailVerify   Namespace = "email-verification"
	NamespacePasswordReset Namespace = "password-reset"
)

// CodeTTL is how long a stored code stays usable.
const CodeTTL = 10 * time.Minute

type Entry struct {
	Code      string
	ExpiresAt time.Time
}

type CodeStore interface {
	// Store replaces any existing code for the (namespace, email) pair.
	Store(ns Namespace, email, code string, expiresAt time.Time)
	// Get is a pure lookup; it neither mutates nor checks expiry.
	Get(ns Namespace, email string) (Entry, bool)
	// Remove is idempotent; removing an absent key is a no-op.
	Remove(ns Namespace, email string)
}

type storeKey struct {
	ns    Namespace
	email string
}

type MemoryStore struct {
	mu    sync.RWMutex
	codes map[storeKey]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{codes: make(map[storeKey]Entry)}
}

func (s *MemoryStore) Store(ns Namespace, email, code string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[storeKey{ns: ns, email: email}] = Entry{Code: code, ExpiresAt: expiresAt}
}

func (s *MemoryStore) Get(ns Namespace, email string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.codes[storeKey{ns: ns, email: email}]
	return entry, ok
}

func (s *MemoryStore) Remove(ns Namespace, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, storeKey{ns: ns, email: email})
}

var (
	ErrCodeNotFound = apperr.Validation("CODE_NOT_FOUND", "no verification code found, please request a new code")
	ErrCodeExpired  = apperr.Validation("CODE_EXPIRED", "verification code has expired, please request a new code")
	ErrCodeMismatch = apperr.Validation("CODE_MISMATCH", "invalid verification code")
)

// Check runs the shared validation protocol. An expired entry is removed on
// detection; a mismatched entry stays so the caller can retry until expiry.
// On success the entry also stays: the caller removes it only after the state
// change the code authorizes has been persisted.
func Check(store CodeStore, ns Namespace, email, provided string) error {
	entry, ok := store.Get(ns, email)
	if !ok {
		return ErrCodeNotFound
	}
	if time.Now().After(entry.ExpiresAt) {
		store.Remove(ns, email)
		return ErrCodeExpired
	}
	if entry.Code != provided {
		return ErrCodeMismatch
	}
	return nil
}
