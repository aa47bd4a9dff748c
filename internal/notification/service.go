// Package notification turns Gmail push notifications into mail sync runs.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	credentialdomain "github.com/kentsubra71/keystone/internal/credential/domain"
	mailusecase "github.com/kentsubra71/keystone/internal/mail/usecase"

	"cloud.google.com/go/pubsub"
	"github.com/charmbracelet/log"
	"google.golang.org/api/option"
)

// GmailNotification is the payload Gmail publishes on every mailbox change.
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

type MailSyncer interface {
	SyncMail(ctx context.Context) (*mailusecase.IngestResult, error)
}

type TokenProvider interface {
	ValidAccessToken(ctx context.Context) (*credentialdomain.AccessToken, error)
}

type Watcher interface {
	Watch(ctx context.Context, accessToken, topicName string) (uint64, error)
}

type Service struct {
	pubsubClient *pubsub.Client
	syncer       MailSyncer
	tokens       TokenProvider
	watcher      Watcher
	projectID    string
	topicName    string
	subName      string
	ownerEmail   string
	logger       *log.Logger

	mu            sync.Mutex
	lastHistoryID uint64
	syncMu        sync.Mutex
}

// NewService connects to Pub/Sub. credentials is a JSON document or a file path; empty uses
// application default credentials.
func NewService(ctx context.Context, projectID, topicName, credentials, ownerEmail string, syncer MailSyncer, tokens TokenProvider, watcher Watcher, logger *log.Logger) (*Service, error) {
	var opts []option.ClientOption
	switch {
	case strings.HasPrefix(strings.TrimSpace(credentials), "{"):
		opts = append(opts, option.WithCredentialsJSON([]byte(credentials)))
	case credentials != "":
		opts = append(opts, option.WithCredentialsFile(credentials))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	s := newService(projectID, topicName, ownerEmail, syncer, tokens, watcher, logger)
	s.pubsubClient = client
	return s, nil
}

func newService(projectID, topicName, ownerEmail string, syncer MailSyncer, tokens TokenProvider, watcher Watcher, logger *log.Logger) *Service {
	return &Service{
		syncer:     syncer,
		tokens:     tokens,
		watcher:    watcher,
		projectID:  projectID,
		topicName:  topicName,
		subName:    topicName + "-sub",
		ownerEmail: strings.ToLower(strings.TrimSpace(ownerEmail)),
		logger:     logger.WithPrefix("PubSub"),
	}
}

// TopicPath is the fully qualified topic name Gmail publishes to.
func (s *Service) TopicPath() string {
	return fmt.Sprintf("projects/%s/topics/%s", s.projectID, s.topicName)
}

// EnsureWatch (re)registers the Gmail watch and seeds the history id so notifications older
// than the watch are ignored.
func (s *Service) EnsureWatch(ctx context.Context) error {
	tok, err := s.tokens.ValidAccessToken(ctx)
	if err != nil {
		return fmt.Errorf("get access token: %w", err)
	}
	historyID, err := s.watcher.Watch(ctx, tok.Token, s.TopicPath())
	if err != nil {
		return err
	}

	s.mu.Lock()
	if historyID > s.lastHistoryID {
		s.lastHistoryID = historyID
	}
	s.mu.Unlock()
	return nil
}

// Start blocks receiving messages until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("starting notification listener", "topic", s.topicName, "subscription", s.subName)

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check subscription: %w", err)
	}

	if !exists {
		topic := s.pubsubClient.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			return fmt.Errorf("check topic: %w", err)
		}
		if !topicExists {
			return fmt.Errorf("topic %s does not exist", s.topicName)
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 60 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("create subscription: %w", err)
		}
		s.logger.Info("created subscription", "subscription", s.subName)
	}

	s.logger.Info("listening for messages", "subscription", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if _, err := s.handleMessage(ctx, msg.Data); err != nil {
			s.logger.Error("failed to handle notification", "err", err)
		}
		msg.Ack()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("receive: %w", err)
	}
	return nil
}

func (s *Service) Close() error {
	if s.pubsubClient == nil {
		return nil
	}
	return s.pubsubClient.Close()
}

// handleMessage reports whether the notification triggered a sync.
func (s *Service) handleMessage(ctx context.Context, data []byte) (bool, error) {
	var n GmailNotification
	if err := json.Unmarshal(data, &n); err != nil {
		return false, fmt.Errorf("unmarshal notification: %w", err)
	}
	s.logger.Debug("notification received", "email", n.EmailAddress, "historyId", n.HistoryID)

	if s.ownerEmail != "" && !strings.EqualFold(strings.TrimSpace(n.EmailAddress), s.ownerEmail) {
		s.logger.Warn("ignoring notification for another mailbox", "email", n.EmailAddress)
		return false, nil
	}

	s.mu.Lock()
	if n.HistoryID <= s.lastHistoryID {
		last := s.lastHistoryID
		s.mu.Unlock()
		s.logger.Debug("skipping duplicate notification", "historyId", n.HistoryID, "last", last)
		return false, nil
	}
	s.lastHistoryID = n.HistoryID
	s.mu.Unlock()

	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	res, err := s.syncer.SyncMail(ctx)
	if err != nil {
		return true, err
	}
	s.logger.Info("mail sync finished", "historyId", n.HistoryID, "created", res.ItemsCreated, "updated", res.ItemsUpdated)
	return true, nil
}
