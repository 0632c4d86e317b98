// pkg/memcache/resolved_names.go
package mem

import (
	"sync"
	"time"
)

// ResolvedNameStore remembers account holder names the gateway returned so
// repeated lookups for the same (account number, bank code) skip the network.
type ResolvedNameStore interface {
	Set(accountNumber, bankCode, accountName string, ttl time.Duration)

	// Get returns the cached name if it has not expired.
	Get(accountNumber, bankCode string) (string, bool)

	Forget(accountNumber, bankCode string)
}

type entry struct {
	name      string
	expiresAt time.Time
}

type ResolvedNames struct {
	mu   sync.RWMutex
	data map[string]entry
}

func NewResolvedNames() *ResolvedNames {
	return &ResolvedNames{
		data: make(map[string]entry),
	}
}

func key(accountNumber, bankCode string) string {
	return bankCode + "/" + accountNumber
}

func (s *ResolvedNames) Set(accountNumber, bankCode, accountName string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key(accountNumber, bankCode)] = entry{
		name:      accountName,
		expiresAt: time.Now().Add(ttl),
	}
}

func (s *ResolvedNames) Get(accountNumber, bankCode string) (string, bool) {
	s.mu.RLock()
	e, ok := s.data[key(accountNumber, bankCode)]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if time.Now().After(e.expiresAt) {
		s.Forget(accountNumber, bankCode) // cleanup expired
		return "", false
	}
	return e.name, true
}

func (s *ResolvedNames) Forget(accountNumber, bankCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key(accountNumber, bankCode))
}
