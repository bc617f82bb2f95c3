package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/Gwishyman/emailotp/internal/domain"
)

// Ledger persists verified identities as a flat UTF-8 CSV file: header row
// "email,username", one data row per identity. The scan-then-append in
// RecordIfAbsent is a critical section; the mutex keeps concurrent sessions
// from double-appending or interleaving writes.
type Ledger struct {
	mu   sync.Mutex
	path string
}

func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

// Init creates the file with its header row if it does not exist yet.
// Idempotent; safe to call on every startup.
func (l *Ledger) Init(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.initLocked()
}

func (l *Ledger) initLocked() error {
	if _, err := os.Stat(l.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat ledger %s: %w", l.path, err)
	}
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("create ledger %s: %w", l.path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"email", "username"}); err != nil {
		return fmt.Errorf("write ledger header: %w", err)
	}
	w.Flush()
	return w.Error()
}

// RecordIfAbsent appends (email, handle) unless a row with the same handle
// already exists. Deduplication is by handle, first write wins.
func (l *Ledger) RecordIfAbsent(_ context.Context, email, handle string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.initLocked(); err != nil {
		return false, err
	}

	rows, err := l.readLocked()
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		if row.Handle == handle {
			return false, nil
		}
	}

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return false, fmt.Errorf("open ledger %s: %w", l.path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{email, handle}); err != nil {
		return false, fmt.Errorf("append ledger row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return false, fmt.Errorf("flush ledger: %w", err)
	}
	return true, nil
}

// Count returns the number of verified identities on record.
func (l *Ledger) Count(_ context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rows, err := l.readLocked()
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (l *Ledger) readLocked() ([]domain.VerifiedIdentity, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ledger %s: %w", l.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", l.path, err)
	}

	var out []domain.VerifiedIdentity
	for i, row := range records {
		if i == 0 || len(row) < 2 {
			continue // header or malformed row
		}
		out = append(out, domain.VerifiedIdentity{Email: row[0], Handle: row[1]})
	}
	return out, nil
}
