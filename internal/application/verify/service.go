package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Gwishyman/emailotp/internal/domain"
	"github.com/Gwishyman/emailotp/internal/pkg/id"
	"github.com/Gwishyman/emailotp/internal/pkg/otp"
)

// State is the terminal state of one verification session.
type State string

const (
	StateVerified       State = "verified"
	StateExpired        State = "expired"
	StateMismatched     State = "mismatched"
	StateDeliveryFailed State = "delivery_failed"
	StateCancelled      State = "cancelled"
)

// Request carries the inbound command context that starts a session.
type Request struct {
	UserID    string
	Username  string // platform display name, without the "@" prefix
	ChannelID string // public channel the command was invoked in
	MessageID string // the invoking message, for the public reply
	GuildName string // originating guild name, or "ERROR" when none
}

// Result is the session's terminal outcome.
type Result struct {
	State State
	Email string // set only when State is StateVerified
}

// PendingStore tracks at most one pending OTP challenge per user.
type PendingStore interface {
	// Begin inserts or replaces the pending record for userID. The returned
	// flag reports that an earlier unfinished record was overwritten.
	Begin(ctx context.Context, userID, email, code string, ttl time.Duration, maxAttempts int) (superseded bool, err error)
	Get(ctx context.Context, userID string) (*domain.PendingVerification, error)
	// Validate checks a submitted code. The record is removed on Verified and
	// on Expired; on Mismatch the attempts counter is decremented and the
	// record removed once it reaches zero.
	Validate(ctx context.Context, userID, code string, now time.Time) (domain.Outcome, error)
	Cancel(ctx context.Context, userID string) error
}

// Ledger is the durable, deduplicated record of verified identities.
type Ledger interface {
	Init(ctx context.Context) error
	// RecordIfAbsent appends (email, handle) unless a row for handle already
	// exists. Returns whether a new row was written.
	RecordIfAbsent(ctx context.Context, email, handle string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// Messenger is the chat collaborator: private-channel delivery plus a
// bounded wait for the next reply on a channel.
type Messenger interface {
	// OpenDM returns the private channel ID for userID, or an error wrapping
	// domain.ErrForbidden when the user disallows direct messages.
	OpenDM(ctx context.Context, userID string) (string, error)
	Send(ctx context.Context, channelID, text string) error
	// Reply answers the invoking message in its public channel. A positive
	// deleteAfter removes the reply once the duration elapses.
	Reply(ctx context.Context, channelID, messageID, text string, deleteAfter time.Duration) error
	// AwaitReply blocks until the given user posts a message on the given
	// channel, or the timeout elapses (error wrapping domain.ErrTimeout).
	// Messages from other users or channels are ignored, not consumed.
	AwaitReply(ctx context.Context, userID, channelID string, timeout time.Duration) (string, error)
}

// Mailer delivers the passcode over authenticated SMTP.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Config bounds one session's waits and code parameters.
type Config struct {
	CodeLength  int
	Expiry      time.Duration // OTP lifetime; also bounds the code wait
	EmailWait   time.Duration // bound for the email-address reply
	MaxAttempts int           // incorrect codes tolerated per session
}

// Service orchestrates verification sessions. One call to Run is one
// session; distinct users' sessions may run concurrently.
type Service struct {
	store  PendingStore
	ledger Ledger
	chat   Messenger
	mailer Mailer
	cfg    Config
	now    func() time.Time
}

func NewService(store PendingStore, ledger Ledger, chat Messenger, mailer Mailer, cfg Config) *Service {
	return &Service{
		store:  store,
		ledger: ledger,
		chat:   chat,
		mailer: mailer,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Run drives one session from the inbound command to a terminal state.
// Every failure is terminal for this session only; errors never escape to
// the caller beyond the Result.
func (s *Service) Run(ctx context.Context, req Request) Result {
	log := slog.With("session_id", id.New(), "user_id", req.UserID, "guild", req.GuildName)

	dm, err := s.chat.OpenDM(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			s.reply(ctx, req, "I can't DM you. Enable DMs and try again.", 0)
		} else {
			log.Warn("open dm failed", "err", err)
		}
		return Result{State: StateCancelled}
	}

	// Discord surfaces closed DMs on the first send, not on channel creation.
	if err := s.chat.Send(ctx, dm, "Please reply with your email address."); err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			s.reply(ctx, req, "I can't DM you. Enable DMs and try again.", 0)
		} else {
			log.Warn("email prompt failed", "err", err)
		}
		return Result{State: StateCancelled}
	}
	s.reply(ctx, req, "Check your DMs to continue.", 5*time.Second)

	email, err := s.chat.AwaitReply(ctx, req.UserID, dm, s.cfg.EmailWait)
	if err != nil {
		s.send(ctx, dm, "Timed out.")
		log.Info("session cancelled waiting for email", "err", err)
		return Result{State: StateCancelled}
	}
	email = strings.TrimSpace(email)

	code, err := otp.Generate(s.cfg.CodeLength)
	if err != nil {
		log.Error("otp generation failed", "err", err)
		s.send(ctx, dm, "Something went wrong. Try again later.")
		return Result{State: StateCancelled}
	}

	superseded, err := s.store.Begin(ctx, req.UserID, email, code, s.cfg.Expiry, s.cfg.MaxAttempts)
	if err != nil {
		log.Error("begin pending verification failed", "err", err)
		s.send(ctx, dm, "Something went wrong. Try again later.")
		return Result{State: StateCancelled}
	}
	if superseded {
		log.Info("superseded earlier pending verification")
	}

	subject := "Your Discord OTP Code"
	body := fmt.Sprintf("Your OTP code is: %s\n\nThis code expires in %d minutes.", code, int(s.cfg.Expiry.Minutes()))
	if err := s.mailer.SendEmail(ctx, email, subject, body); err != nil {
		// Purge the record so a stale code cannot be validated later.
		if cErr := s.store.Cancel(ctx, req.UserID); cErr != nil {
			log.Warn("cancel pending verification failed", "err", cErr)
		}
		log.Warn("otp delivery failed", "err", err)
		s.send(ctx, dm, "Failed to send email.")
		return Result{State: StateDeliveryFailed}
	}
	s.send(ctx, dm, "OTP sent. Please reply with the OTP.")

	deadline := s.now().Add(s.cfg.Expiry)
	for {
		wait := deadline.Sub(s.now())
		if wait <= 0 {
			s.send(ctx, dm, "OTP expired.")
			log.Info("session expired waiting for code")
			return Result{State: StateExpired}
		}
		submitted, err := s.chat.AwaitReply(ctx, req.UserID, dm, wait)
		if err != nil {
			// The wait bound equals the record's lifetime, so a timeout and a
			// true expiry look the same to the user. The record has expired
			// naturally; no explicit cancel needed.
			s.send(ctx, dm, "OTP expired.")
			log.Info("session expired waiting for code", "err", err)
			return Result{State: StateExpired}
		}

		out, err := s.store.Validate(ctx, req.UserID, strings.TrimSpace(submitted), s.now())
		if err != nil {
			log.Error("validate failed", "err", err)
			s.send(ctx, dm, "Something went wrong. Try again later.")
			return Result{State: StateCancelled}
		}

		switch out.Status {
		case domain.OutcomeNoPending:
			// Defensive: reachable only if the record vanished out of band.
			s.send(ctx, dm, "No OTP request found.")
			return Result{State: StateCancelled}
		case domain.OutcomeExpired:
			s.send(ctx, dm, "OTP expired.")
			return Result{State: StateExpired}
		case domain.OutcomeMismatch:
			if out.AttemptsLeft <= 0 {
				s.send(ctx, dm, "Incorrect OTP. No attempts left.")
				log.Info("session failed, attempts exhausted")
				return Result{State: StateMismatched}
			}
			s.send(ctx, dm, fmt.Sprintf("Incorrect OTP. %d attempt(s) left.", out.AttemptsLeft))
		case domain.OutcomeVerified:
			handle := "@" + req.Username
			if _, err := s.ledger.RecordIfAbsent(ctx, out.Email, handle); err != nil {
				log.Error("ledger write failed", "handle", handle, "err", err)
				s.send(ctx, dm, "Verified, but saving your record failed. Contact an admin.")
				return Result{State: StateVerified, Email: out.Email}
			}
			s.send(ctx, dm, fmt.Sprintf("OTP verified successfully! You can now access the server **%s**.", req.GuildName))
			log.Info("session verified", "handle", handle)
			return Result{State: StateVerified, Email: out.Email}
		}
	}
}

func (s *Service) send(ctx context.Context, channelID, text string) {
	if err := s.chat.Send(ctx, channelID, text); err != nil {
		slog.Warn("dm send failed", "channel_id", channelID, "err", err)
	}
}

func (s *Service) reply(ctx context.Context, req Request, text string, deleteAfter time.Duration) {
	if err := s.chat.Reply(ctx, req.ChannelID, req.MessageID, text, deleteAfter); err != nil {
		slog.Warn("public reply failed", "channel_id", req.ChannelID, "err", err)
	}
}
