package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	maildomain "github.com/kentsubra71/keystone/internal/mail/domain"

	"github.com/charmbracelet/log"
	"github.com/emersion/go-message/mail"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	pageSize        = 100
	defaultTimeout  = 30 * time.Second
	noSubject       = "(No Subject)"
	headerListUnsub = "List-Unsubscribe"
	headerListID    = "List-Id"
)

type Service struct {
	clientID     string
	clientSecret string
	timeout      time.Duration
	logger       *log.Logger
}

func NewService(clientID, clientSecret string, logger *log.Logger) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
		timeout:      defaultTimeout,
		logger:       logger.WithPrefix("Gmail"),
	}
}

// GetGmailService creates a Gmail client for an already valid access token.
// Refresh is owned by the credential guard, so the token source never refreshes.
func (s *Service) GetGmailService(ctx context.Context, accessToken string) (*gmail.Service, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("gmail: empty access token")
	}
	token := &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}
	client := config.Client(ctx, token)

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// Connect implements maildomain.Connector.
func (s *Service) Connect(ctx context.Context, accessToken string) (maildomain.ThreadSource, error) {
	srv, err := s.GetGmailService(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return &Mailbox{srv: srv, timeout: s.timeout}, nil
}

// Watch sets up push notifications for the inbox and returns the starting history id.
func (s *Service) Watch(ctx context.Context, accessToken, topicName string) (uint64, error) {
	srv, err := s.GetGmailService(ctx, accessToken)
	if err != nil {
		return 0, err
	}

	// Only one watch per user is allowed; clear any previous one.
	s.logger.Debug("stopping existing watch")
	_ = srv.Users.Stop("me").Context(ctx).Do()

	req := &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{"INBOX"},
	}
	s.logger.Info("starting watch", "topic", topicName)
	resp, err := srv.Users.Watch("me", req).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to watch mailbox: %w", err)
	}
	s.logger.Info("watch started", "expiration", resp.Expiration, "historyId", resp.HistoryId)
	return resp.HistoryId, nil
}

// Mailbox reads threads through one authenticated Gmail client.
type Mailbox struct {
	srv     *gmail.Service
	timeout time.Duration
}

func (m *Mailbox) ListThreadIDs(ctx context.Context, query string, max int) ([]string, error) {
	ids := make([]string, 0, max)
	pageToken := ""

	for len(ids) < max {
		callCtx, cancel := context.WithTimeout(ctx, m.timeout)
		call := m.srv.Users.Threads.List("me").
			Q(query).
			MaxResults(int64(min(pageSize, max-len(ids)))).
			Context(callCtx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		cancel()
		if err != nil {
			return nil, fmt.Errorf("unable to list threads: %w", err)
		}

		for _, t := range resp.Threads {
			if t.Id != "" {
				ids = append(ids, t.Id)
			}
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return ids, nil
}

func (m *Mailbox) GetThread(ctx context.Context, id string) (*maildomain.Thread, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	t, err := m.srv.Users.Threads.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to get thread %s: %w", id, err)
	}
	return convertThread(t), nil
}

// Helper functions

func convertThread(t *gmail.Thread) *maildomain.Thread {
	out := &maildomain.Thread{
		ID:      t.Id,
		Snippet: t.Snippet,
		Subject: noSubject,
	}
	if len(t.Messages) == 0 {
		return out
	}

	first := t.Messages[0]
	out.Labels = first.LabelIds
	if first.Payload != nil {
		if subject := getHeader(first.Payload.Headers, "Subject"); subject != "" {
			out.Subject = subject
		}
	}

	for _, msg := range t.Messages {
		var headers []*gmail.MessagePartHeader
		if msg.Payload != nil {
			headers = msg.Payload.Headers
		}
		if getHeader(headers, headerListUnsub) != "" || getHeader(headers, headerListID) != "" {
			out.IsMailingList = true
		}

		from := getHeader(headers, "From")
		out.Messages = append(out.Messages, maildomain.Message{
			ID:          msg.Id,
			From:        from,
			FromAddress: extractAddress(from),
			To:          parseAddressList(getHeader(headers, "To")),
			CC:          parseAddressList(getHeader(headers, "Cc")),
			ReceivedAt:  time.UnixMilli(msg.InternalDate).UTC(),
			Body:        getPlainTextBody(msg.Payload),
		})
	}
	return out
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

// extractAddress returns the bare lower-cased address of a From header.
func extractAddress(raw string) string {
	if raw == "" {
		return ""
	}
	if addr, err := mail.ParseAddress(raw); err == nil {
		return strings.ToLower(addr.Address)
	}
	if i, j := strings.LastIndex(raw, "<"), strings.LastIndex(raw, ">"); i >= 0 && j > i {
		return strings.ToLower(strings.TrimSpace(raw[i+1 : j]))
	}
	return strings.ToLower(strings.TrimSpace(raw))
}

func parseAddressList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if list, err := mail.ParseAddressList(raw); err == nil {
		out := make([]string, 0, len(list))
		for _, a := range list {
			out = append(out, strings.ToLower(a.Address))
		}
		return out
	}

	// Lenient split for malformed headers.
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if addr := extractAddress(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// getPlainTextBody walks the MIME tree depth first and returns the first text/plain part.
func getPlainTextBody(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}
	if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
		return decodeBody(part.Body.Data)
	}
	for _, child := range part.Parts {
		if body := getPlainTextBody(child); body != "" {
			return body
		}
	}
	return ""
}

func decodeBody(data string) string {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	if b, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	return ""
}
