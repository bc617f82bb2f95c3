package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Gwishyman/emailotp/internal/application/verify"
	"github.com/Gwishyman/emailotp/internal/config"
	"github.com/Gwishyman/emailotp/internal/domain"
	"github.com/bwmarrin/discordgo"
)

// Bot is the Discord gateway. It dispatches the otp command to verification
// sessions and implements verify.Messenger for them.
type Bot struct {
	session *discordgo.Session
	awaiter *Awaiter
	limiter *RateLimiter
	prefix  string
	svc     *verify.Service
}

func NewBot(cfg *config.Config) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	return &Bot{
		session: session,
		awaiter: NewAwaiter(),
		// One invocation per 30s per user, burst of 2.
		limiter: NewRateLimiter(1.0/30, 2),
		prefix:  cfg.CommandPrefix,
	}, nil
}

// Start registers the message handler and opens the gateway connection.
func (b *Bot) Start(svc *verify.Service) error {
	b.svc = svc
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		slog.Info("logged in", "user", r.User.Username)
	})
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	// Feed suspended sessions first; replies are plain messages, not commands.
	b.awaiter.Dispatch(m.Author.ID, m.ChannelID, m.Content)

	if strings.TrimSpace(m.Content) != b.prefix+"otp" {
		return
	}
	if !b.limiter.Allow(m.Author.ID) {
		b.replyEphemeral(m, "You're doing that too often. Try again in a bit.")
		return
	}

	guildName := "ERROR"
	if m.GuildID != "" {
		if g, err := s.State.Guild(m.GuildID); err == nil {
			guildName = g.Name
		}
	}

	req := verify.Request{
		UserID:    m.Author.ID,
		Username:  m.Author.Username,
		ChannelID: m.ChannelID,
		MessageID: m.ID,
		GuildName: guildName,
	}
	// One goroutine per session; distinct users interleave freely.
	go b.svc.Run(context.Background(), req)
}

func (b *Bot) replyEphemeral(m *discordgo.MessageCreate, text string) {
	if err := b.Reply(context.Background(), m.ChannelID, m.ID, text, 5*time.Second); err != nil {
		slog.Warn("rate-limit reply failed", "channel_id", m.ChannelID, "err", err)
	}
}

// ── verify.Messenger ────────────────────────────────────────────────────────

func (b *Bot) OpenDM(_ context.Context, userID string) (string, error) {
	ch, err := b.session.UserChannelCreate(userID)
	if err != nil {
		if isDMForbidden(err) {
			return "", fmt.Errorf("open dm for %s: %w", userID, domain.ErrForbidden)
		}
		return "", fmt.Errorf("open dm for %s: %w", userID, err)
	}
	return ch.ID, nil
}

func (b *Bot) Send(_ context.Context, channelID, text string) error {
	_, err := b.session.ChannelMessageSend(channelID, text)
	if err != nil {
		if isDMForbidden(err) {
			return fmt.Errorf("send to %s: %w", channelID, domain.ErrForbidden)
		}
		return fmt.Errorf("send to %s: %w", channelID, err)
	}
	return nil
}

func (b *Bot) Reply(_ context.Context, channelID, messageID, text string, deleteAfter time.Duration) error {
	msg, err := b.session.ChannelMessageSendReply(channelID, text, &discordgo.MessageReference{
		MessageID: messageID,
		ChannelID: channelID,
	})
	if err != nil {
		return fmt.Errorf("reply in %s: %w", channelID, err)
	}
	if deleteAfter > 0 {
		time.AfterFunc(deleteAfter, func() {
			if err := b.session.ChannelMessageDelete(channelID, msg.ID); err != nil {
				slog.Debug("auto-delete failed", "channel_id", channelID, "err", err)
			}
		})
	}
	return nil
}

func (b *Bot) AwaitReply(ctx context.Context, userID, channelID string, timeout time.Duration) (string, error) {
	return b.awaiter.Await(ctx, userID, channelID, timeout)
}

// isDMForbidden reports whether err is Discord's "cannot send messages to
// this user" (the user disallows DMs).
func isDMForbidden(err error) bool {
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Message != nil {
		return rerr.Message.Code == discordgo.ErrCodeCannotSendMessagesToThisUser
	}
	return false
}
