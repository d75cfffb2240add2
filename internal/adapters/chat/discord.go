// Package chat connects the bot to Discord: live message delivery, channel
// history for catch-up, message lookups and replies.
package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	service "github.com/okian/buffcal/internal/app"
	"github.com/okian/buffcal/internal/domain/model"
	"github.com/okian/buffcal/pkg/logger"
)

// discordEpochMs is the first millisecond of 2015, the origin of Discord
// snowflake timestamps.
const discordEpochMs = 1420070400000

// maxHistoryPage is the largest page the channel messages endpoint serves.
const maxHistoryPage = 100

// Sink receives live messages.
type Sink interface {
	Submit(ctx context.Context, msg model.Message, trigger model.Trigger) error
}

// Discord is a bot session bound to one announcement channel.
type Discord struct {
	session   *discordgo.Session
	channelID string
	logger    logger.Logger
}

var _ service.MessageSource = (*Discord)(nil)

// NewDiscord creates a bot session for token. The gateway connection is
// opened by Open.
func NewDiscord(token, channelID string, opts ...Option) (*Discord, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	d := &Discord{
		session:   session,
		channelID: channelID,
		logger:    logger.Get().Named("discord"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Open registers the message handlers and connects to the gateway. New and
// edited messages are forwarded to sink until Close.
func (d *Discord) Open(ctx context.Context, sink Sink) error {
	d.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		d.logger.Info(ctx, "bot is online", logger.String("user", r.User.String()))
	})
	d.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		d.forward(ctx, sink, m.Message, model.TriggerCreate)
	})
	d.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageUpdate) {
		d.forward(ctx, sink, m.Message, model.TriggerUpdate)
	})

	if err := d.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (d *Discord) Close() error {
	return d.session.Close()
}

func (d *Discord) forward(ctx context.Context, sink Sink, m *discordgo.Message, trigger model.Trigger) {
	if m == nil {
		return
	}
	if d.channelID != "" && m.ChannelID != d.channelID {
		return
	}
	msg := toMessage(m)
	if msg.AuthorIsBot {
		return
	}
	if err := sink.Submit(ctx, msg, trigger); err != nil {
		d.logger.Warn(ctx, "dropping message",
			logger.String("message_id", msg.ID),
			logger.Error(err),
		)
	}
}

// History returns up to limit messages posted in channelID after since,
// oldest first.
func (d *Discord) History(ctx context.Context, channelID string, since time.Time, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > maxHistoryPage {
		limit = maxHistoryPage
	}
	raw, err := d.session.ChannelMessages(channelID, limit, "", snowflakeAt(since), "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	out := make([]model.Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		msg := toMessage(raw[i])
		if msg.SentAt.Before(since) {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

// Message fetches one message by ID.
func (d *Discord) Message(ctx context.Context, channelID, id string) (model.Message, error) {
	m, err := d.session.ChannelMessage(channelID, id, discordgo.WithContext(ctx))
	if isNotFound(err) {
		return model.Message{}, service.ErrMessageNotFound
	}
	if err != nil {
		return model.Message{}, err
	}
	return toMessage(m), nil
}

// Reply posts text as a reply to msg.
func (d *Discord) Reply(ctx context.Context, msg model.Message, text string) error {
	ref := &discordgo.MessageReference{MessageID: msg.ID, ChannelID: msg.ChannelID}
	_, err := d.session.ChannelMessageSendReply(msg.ChannelID, text, ref, discordgo.WithContext(ctx))
	return err
}

func toMessage(m *discordgo.Message) model.Message {
	return model.Message{
		ID:          m.ID,
		ChannelID:   m.ChannelID,
		AuthorIsBot: m.Author != nil && m.Author.Bot,
		Text:        m.Content,
		SentAt:      m.Timestamp,
	}
}

// snowflakeAt returns the smallest snowflake ID created at t, for use as an
// "after" cursor.
func snowflakeAt(t time.Time) string {
	ms := t.UnixMilli() - discordEpochMs
	if ms < 0 {
		ms = 0
	}
	return strconv.FormatUint(uint64(ms)<<22, 10)
}

func isNotFound(err error) bool {
	var rerr *discordgo.RESTError
	return errors.As(err, &rerr) && rerr.Response != nil && rerr.Response.StatusCode == http.StatusNotFound
}
