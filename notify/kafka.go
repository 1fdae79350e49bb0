package notify

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authflow"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// Event types carried in MailEvent.Type.
const (
	EventVerifyEmail   = "verify_email"
	EventResetPassword = "reset_password"
)

// MailEvent is the JSON value published for every email request. The
// message key is the recipient address, so requests for one user stay
// ordered within a partition.
type MailEvent struct {
	Type       string    `json:"type"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Link       string    `json:"link"`
	OccurredAt time.Time `json:"occurredAt"`
}

// KafkaConfig configures KafkaNotifier. Username empty disables SASL/TLS.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	Username string
	Password string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes a MailEvent per email for a separate mail
// service to deliver.
type KafkaNotifier struct {
	writer messageWriter
	now    func() time.Time
}

// NewKafkaNotifier builds a writer for cfg.Topic. It does not dial until
// the first publish.
func NewKafkaNotifier(cfg KafkaConfig) (*KafkaNotifier, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("notify: kafka brokers and topic are required")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 10 * time.Second,
	}
	if cfg.Username != "" {
		w.Transport = &kafka.Transport{
			SASL: plain.Mechanism{Username: cfg.Username, Password: cfg.Password},
			TLS:  &tls.Config{},
		}
	}
	return &KafkaNotifier{writer: w, now: time.Now}, nil
}

// SendVerificationEmail publishes an EventVerifyEmail event.
func (n *KafkaNotifier) SendVerificationEmail(ctx context.Context, msg authflow.EmailMessage) error {
	return n.publish(ctx, EventVerifyEmail, msg, VerifyLink(msg))
}

// SendResetPasswordEmail publishes an EventResetPassword event.
func (n *KafkaNotifier) SendResetPasswordEmail(ctx context.Context, msg authflow.EmailMessage) error {
	return n.publish(ctx, EventResetPassword, msg, ResetLink(msg))
}

// Close flushes pending messages and releases the writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

func (n *KafkaNotifier) publish(ctx context.Context, eventType string, msg authflow.EmailMessage, link string) error {
	now := n.now().UTC()
	value, err := json.Marshal(MailEvent{
		Type:       eventType,
		Email:      msg.Email,
		Name:       msg.Name,
		Link:       link,
		OccurredAt: now,
	})
	if err != nil {
		return fmt.Errorf("notify: encode %s: %w", eventType, err)
	}

	if err := n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Email),
		Value: value,
		Time:  now,
	}); err != nil {
		return fmt.Errorf("notify: kafka publish %s: %w", eventType, err)
	}
	return nil
}
