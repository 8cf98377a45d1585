// ABOUTME: Matrix sink posting notifications to a room via mautrix
// ABOUTME: Renders the Markdown body to HTML with goldmark and sends an m.notice

package notify

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/freegoat/manga-admin/internal/store"
)

// MatrixConfig names the account and room used for delivery.
type MatrixConfig struct {
	Homeserver  string
	UserID      string
	AccessToken string
	RoomID      string
}

// MatrixSink posts notifications as notices in one Matrix room.
type MatrixSink struct {
	client *mautrix.Client
	room   id.RoomID
	md     goldmark.Markdown
	logger *slog.Logger
}

// NewMatrixSink creates a Matrix client for cfg. No network call is made until Dispatch.
func NewMatrixSink(cfg MatrixConfig) (*MatrixSink, error) {
	if cfg.RoomID == "" {
		return nil, fmt.Errorf("matrix room_id is required")
	}
	client, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}
	return &MatrixSink{
		client: client,
		room:   id.RoomID(cfg.RoomID),
		md:     goldmark.New(),
		logger: slog.Default().With("component", "notify.matrix"),
	}, nil
}

// Dispatch sends n to the configured room.
func (s *MatrixSink) Dispatch(ctx context.Context, n *store.Notification) error {
	content, err := s.render(n)
	if err != nil {
		return err
	}
	resp, err := s.client.SendMessageEvent(ctx, s.room, event.EventMessage, content)
	if err != nil {
		return fmt.Errorf("sending to matrix room %s: %w", s.room, err)
	}
	s.logger.Debug("notification posted", "notification_id", n.ID, "event_id", resp.EventID)
	return nil
}

// render builds the notice content. The plain body keeps the Markdown source.
func (s *MatrixSink) render(n *store.Notification) (*event.MessageEventContent, error) {
	prefix := ""
	if n.Priority == store.PriorityHigh {
		prefix = "[!] "
	}
	plain := fmt.Sprintf("%s%s\n\n%s", prefix, n.Title, n.Body)

	var buf bytes.Buffer
	buf.WriteString("<strong>")
	buf.WriteString(html.EscapeString(prefix + n.Title))
	buf.WriteString("</strong>")
	if strings.TrimSpace(n.Body) != "" {
		buf.WriteString("\n")
		if err := s.md.Convert([]byte(n.Body), &buf); err != nil {
			return nil, fmt.Errorf("rendering notification body: %w", err)
		}
	}

	return &event.MessageEventContent{
		MsgType:       event.MsgNotice,
		Body:          strings.TrimSpace(plain),
		Format:        event.FormatHTML,
		FormattedBody: strings.TrimSpace(buf.String()),
	}, nil
}
