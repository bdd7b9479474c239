package auth

import (
	"log"
	"sync"
	"time"
)

// RevocationStore - хранилище отозванных токенов по jti.
// RevocationStore keeps revoked token jtis until they expire on their own.
type RevocationStore interface {
	Revoke(jti string, expiresAt time.Time)
	IsRevoked(jti string) bool
}

// MemoryRevocationStore - потокобезопасное хранилище отозванных jti в памяти.
// Записи живут до истечения срока самого токена, дальше их держать незачем.
// MemoryRevocationStore is a thread-safe in-memory revoked jti store. Entries
// live until the token itself expires; past that there is nothing to hold.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewMemoryRevocationStore создает пустое хранилище отозванных токенов.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{revoked: make(map[string]time.Time)}
}

// Revoke помечает jti отозванным до момента истечения токена.
func (s *MemoryRevocationStore) Revoke(jti string, expiresAt time.Time) {
	if jti == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[jti] = expiresAt
}

// IsRevoked сообщает, отозван ли jti. Просроченные записи удаляются по пути.
func (s *MemoryRevocationStore) IsRevoked(jti string) bool {
	if jti == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.revoked[jti]
	if !ok {
		return false
	}
	if time.Now().After(expiresAt) {
		delete(s.revoked, jti)
		return false
	}
	return true
}

// Sweep удаляет все просроченные записи и возвращает их количество.
func (s *MemoryRevocationStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for jti, expiresAt := range s.revoked {
		if now.After(expiresAt) {
			delete(s.revoked, jti)
			removed++
		}
	}
	return removed
}

// StartSweeper периодически чистит хранилище, пока не закроется канал stop.
func (s *MemoryRevocationStore) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 {
				log.Printf("MemoryRevocationStore: удалено %d просроченных записей", removed)
			}
		case <-stop:
			return
		}
	}
}
