package discord

import (
	"context"
	"testing"
	"time"

	"github.com/Gwishyman/emailotp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwait_ReceivesMatchingMessage(t *testing.T) {
	a := NewAwaiter()

	done := make(chan struct{})
	var got string
	var err error
	go func() {
		defer close(done)
		got, err = a.Await(context.Background(), "u1", "c1", time.Second)
	}()

	// Give the waiter a moment to register, then dispatch.
	time.Sleep(10 * time.Millisecond)
	a.Dispatch("u2", "c1", "wrong user")    // ignored
	a.Dispatch("u1", "c2", "wrong channel") // ignored
	a.Dispatch("u1", "c1", "hello")

	<-done
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestAwait_Timeout(t *testing.T) {
	a := NewAwaiter()
	_, err := a.Await(context.Background(), "u1", "c1", 20*time.Millisecond)
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestAwait_ContextCancelled(t *testing.T) {
	a := NewAwaiter()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := a.Await(ctx, "u1", "c1", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDispatch_AllMatchingWaitersReceive(t *testing.T) {
	a := NewAwaiter()

	results := make(chan string, 2)
	for i := 0; i < 2; i++ {
		go func() {
			msg, err := a.Await(context.Background(), "u1", "c1", time.Second)
			if err == nil {
				results <- msg
			}
		}()
	}
	time.Sleep(10 * time.Millisecond)
	a.Dispatch("u1", "c1", "shared")

	for i := 0; i < 2; i++ {
		select {
		case msg := <-results:
			assert.Equal(t, "shared", msg)
		case <-time.After(time.Second):
			t.Fatal("waiter did not receive the message")
		}
	}
}

func TestDispatch_NoWaiters(t *testing.T) {
	a := NewAwaiter()
	// Must not panic or block.
	a.Dispatch("u1", "c1", "nobody listening")
}
