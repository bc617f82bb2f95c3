package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Gwishyman/emailotp/internal/domain"
)

// PendingStore is the in-memory pending-verification store: a map keyed by
// user ID behind a mutex. Suitable for a single-instance bot; the DynamoDB
// backend covers multi-instance deployments.
type PendingStore struct {
	mu      sync.Mutex
	records map[string]domain.PendingVerification
}

func NewPendingStore() *PendingStore {
	return &PendingStore{records: make(map[string]domain.PendingVerification)}
}

// Begin inserts or replaces the pending record for userID. Replacing an
// earlier record cancels that user's unfinished session.
func (s *PendingStore) Begin(_ context.Context, userID, email, code string, ttl time.Duration, maxAttempts int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, superseded := s.records[userID]
	s.records[userID] = domain.PendingVerification{
		UserID:       userID,
		Email:        email,
		Code:         code,
		ExpiresAt:    time.Now().Add(ttl).Unix(),
		AttemptsLeft: maxAttempts,
	}
	return superseded, nil
}

func (s *PendingStore) Get(_ context.Context, userID string) (*domain.PendingVerification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil, fmt.Errorf("pending verification for %s: %w", userID, domain.ErrNotFound)
	}
	return &rec, nil
}

// Validate applies single-use semantics: the record is removed on success
// and on expiry (an expired record is purged on first touch). A mismatch
// decrements the attempts counter and removes the record once it hits zero.
func (s *PendingStore) Validate(_ context.Context, userID, code string, now time.Time) (domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return domain.Outcome{Status: domain.OutcomeNoPending}, nil
	}
	if now.Unix() > rec.ExpiresAt {
		delete(s.records, userID)
		return domain.Outcome{Status: domain.OutcomeExpired}, nil
	}
	if code != rec.Code {
		rec.AttemptsLeft--
		if rec.AttemptsLeft <= 0 {
			delete(s.records, userID)
		} else {
			s.records[userID] = rec
		}
		return domain.Outcome{Status: domain.OutcomeMismatch, AttemptsLeft: rec.AttemptsLeft}, nil
	}
	delete(s.records, userID)
	return domain.Outcome{Status: domain.OutcomeVerified, Email: rec.Email}, nil
}

func (s *PendingStore) Cancel(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	return nil
}
