// This file contains the implementation of AMPQService. This service publishes user lifecycle events to an AMPQ 0.9.1 broker
// so other services (notes, auth) can react to users being created, updated or deleted.
//
// Events are JSON encoded UserEvent values, published to a durable topic exchange with the event type as routing key.
// The service reconnects on the next publish if the broker connection was lost. A publish makes at most one dial attempt,
// bounded by its context, and after a failed attempt publishes fail fast until reconnectBackoff has passed.

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/technotes/user-service/internal/log"
	"github.com/technotes/user-service/internal/models/user"
)

// User event types, also used as routing keys
const (
	UserCreated = "user.created"
	UserUpdated = "user.updated"
	UserDeleted = "user.deleted"
)

// UserEvent describes a change to a user. It never contains the password.
type UserEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	Roles      []string  `json:"roles"`
	Active     bool      `json:"active"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewUserEvent builds an event of the given type for u.
func NewUserEvent(eventType string, u *user.User) *UserEvent {
	return &UserEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     u.ID.Hex(),
		Username:   u.Username,
		Roles:      u.Roles,
		Active:     u.Active,
		OccurredAt: time.Now().UTC(),
	}
}

// ErrBrokerUnavailable is returned by PublishUserEvent while reconnecting is backed off.
var ErrBrokerUnavailable = errors.New("broker unavailable")

type AMPQService struct {
	brokerURL        string
	exchange         string
	connectTimeout   time.Duration
	reconnectBackoff time.Duration
	connection       *amqp.Connection
	channel          *amqp.Channel
	logger           *log.Logger
	// guards connection, channel and lastFailure across concurrent requests
	mu          sync.Mutex
	lastFailure time.Time
}

// NewAMPQService connects to the broker at brokerURL and declares exchange.
func NewAMPQService(brokerURL, exchange string, logger *log.Logger) (*AMPQService, error) {
	service := &AMPQService{
		brokerURL:      brokerURL,
		exchange:       exchange,
		connectTimeout:   time.Minute / 4,
		reconnectBackoff: 5 * time.Second,
		logger:           logger,
	}

	service.mu.Lock()
	defer service.mu.Unlock()
	if err := service.connect(); err != nil {
		return nil, err
	}
	return service, nil
}

// connect establishes a connection to the AMPQ message broker, retrying until connectTimeout, and declares the exchange.
// Only used at startup. Caller holds s.mu.
func (s *AMPQService) connect() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.connectTimeout)
	defer cancel()

	var err error
	for {
		if err = s.dial(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Second):
		}
	}
}

// dial makes a single attempt to connect, open a channel and declare the exchange within ctx. Caller holds s.mu.
func (s *AMPQService) dial(ctx context.Context) error {
	connection, err := amqp.DialConfig(s.brokerURL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			var d net.Dialer
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			// bounds the handshake; the library clears the deadline once the connection is open
			if deadline, ok := ctx.Deadline(); ok {
				conn.SetDeadline(deadline)
			}
			return conn, nil
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := connection.Channel()
	if err != nil {
		connection.Close()
		return fmt.Errorf("failed to open a channel: %w", err)
	}

	err = channel.ExchangeDeclare(s.exchange, amqp.ExchangeTopic, true, false, false, false, nil)
	if err != nil {
		connection.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", s.exchange, err)
	}

	s.connection = connection
	s.channel = channel
	s.logger.Infof("Connected to RabbitMQ, publishing to exchange %s", s.exchange)
	return nil
}

// ensureConnection ensures that the AMPQ connection and channel are open, making at most one attempt within ctx.
// Caller holds s.mu.
func (s *AMPQService) ensureConnection(ctx context.Context) error {
	if s.connection != nil && !s.connection.IsClosed() && s.channel != nil && !s.channel.IsClosed() {
		return nil
	}
	if !s.lastFailure.IsZero() && time.Since(s.lastFailure) < s.reconnectBackoff {
		return ErrBrokerUnavailable
	}

	s.logger.Info("Reconnecting to RabbitMQ...")
	if s.connection != nil && !s.connection.IsClosed() {
		s.connection.Close()
	}
	if err := s.dial(ctx); err != nil {
		s.lastFailure = time.Now()
		return err
	}
	s.lastFailure = time.Time{}
	return nil
}

// PublishUserEvent publishes event to the exchange, routed by its type.
func (s *AMPQService) PublishUserEvent(ctx context.Context, event *UserEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal user event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureConnection(ctx); err != nil {
		return fmt.Errorf("failed to ensure connection: %w", err)
	}

	err = s.channel.PublishWithContext(ctx, s.exchange, event.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	s.logger.Infof("Published %s event %s for user %s", event.Type, event.ID, event.UserID)
	return nil
}

// Shutdown closes the broker connection
func (s *AMPQService) Shutdown() {
	s.logger.Info("Shutting down AMQP service...")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connection != nil {
		s.connection.Close()
	}
	s.logger.Info("AMQP service shut down")
}
