package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Gwishyman/emailotp/internal/domain"
)

type waiter struct {
	userID    string
	channelID string
	ch        chan string
}

// Awaiter matches inbound messages to sessions suspended in AwaitReply.
// Every waiter whose (user, channel) filter matches receives the message;
// messages from other sources are ignored, not consumed.
type Awaiter struct {
	mu      sync.Mutex
	waiters []*waiter
}

func NewAwaiter() *Awaiter {
	return &Awaiter{}
}

// Dispatch feeds one inbound message to all matching waiters and
// unregisters them. Called from the gateway's message handler.
func (a *Awaiter) Dispatch(userID, channelID, content string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	kept := a.waiters[:0]
	for _, w := range a.waiters {
		if w.userID == userID && w.channelID == channelID {
			w.ch <- content
			continue
		}
		kept = append(kept, w)
	}
	a.waiters = kept
}

// Await blocks until userID posts a message on channelID, the timeout
// elapses, or ctx is cancelled.
func (a *Awaiter) Await(ctx context.Context, userID, channelID string, timeout time.Duration) (string, error) {
	w := &waiter{userID: userID, channelID: channelID, ch: make(chan string, 1)}

	a.mu.Lock()
	a.waiters = append(a.waiters, w)
	a.mu.Unlock()
	defer a.remove(w)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case content := <-w.ch:
		return content, nil
	case <-timer.C:
		return "", fmt.Errorf("no reply within %s: %w", timeout, domain.ErrTimeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (a *Awaiter) remove(target *waiter) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, w := range a.waiters {
		if w == target {
			a.waiters = append(a.waiters[:i], a.waiters[i+1:]...)
			return
		}
	}
}
