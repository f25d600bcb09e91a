package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/commerce"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/shared"
)

// KafkaSourceConfig configures the commerce event consumer
type KafkaSourceConfig struct {
	Brokers        []string
	Topic          string
	GroupID        string
	MinBytes       int
	MaxBytes       int
	MaxWait        time.Duration
	CommitInterval time.Duration
	// MaxAttempts bounds handler attempts per message
	MaxAttempts int
	// RetryBackoff is the first wait between attempts; it doubles up to MaxRetryBackoff
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
}

// DefaultKafkaMaxAttempts is used when MaxAttempts is unset
const DefaultKafkaMaxAttempts = 5

// Validate checks required fields and fills defaults
func (c *KafkaSourceConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("kafka: at least one broker is required")
	}
	if c.Topic == "" {
		return errors.New("kafka: topic is required")
	}
	if c.GroupID == "" {
		return errors.New("kafka: group ID is required")
	}
	if c.MinBytes == 0 {
		c.MinBytes = 1
	}
	if c.MaxBytes == 0 {
		c.MaxBytes = 10e6
	}
	if c.MaxWait == 0 {
		c.MaxWait = time.Second
	}
	c.applyRetryDefaults()
	return nil
}

func (c *KafkaSourceConfig) applyRetryDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultKafkaMaxAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 200 * time.Millisecond
	}
	if c.MaxRetryBackoff < c.RetryBackoff {
		c.MaxRetryBackoff = 30 * c.RetryBackoff
	}
}

// Dispatcher runs the handlers for an event and reports their outcome
type Dispatcher interface {
	Dispatch(ctx context.Context, events ...shared.DomainEvent) error
}

// MessageReader is the part of *kafka.Reader the source uses
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Envelope is the wire format of a commerce event: {"id", "name", "data": {"id"}}
type Envelope struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// messageNamespace seeds deterministic event ids for messages without one
var messageNamespace = uuid.MustParse("6f1c7c2e-4b7a-4f0e-9a53-3c1f0f8d2b11")

// DecodeMessage turns a Kafka message into a sync event.
// Messages without an id get one derived from topic, partition and offset so
// a redelivered message keeps its identity.
func DecodeMessage(msg kafka.Message) (*commerce.EntityEvent, error) {
	var env Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, fmt.Errorf("failed to parse event envelope: %w", err)
	}
	if env.Name == "" {
		return nil, errors.New("event envelope has no name")
	}

	event := commerce.NewEntityEvent(env.Name, env.Data.ID)
	if id, err := uuid.Parse(env.ID); err == nil {
		event.ID = id
	} else {
		ref := msg.Topic + "/" + strconv.Itoa(msg.Partition) + "/" + strconv.FormatInt(msg.Offset, 10)
		event.ID = uuid.NewSHA1(messageNamespace, []byte(ref))
	}
	if !msg.Time.IsZero() {
		event.Timestamp = msg.Time
	}
	return event, nil
}

// KafkaSource consumes commerce events from Kafka and hands them to the bus
// handlers. A message is committed only after every handler succeeded, so a
// failed event is redelivered to the consumer group after a restart.
type KafkaSource struct {
	reader     MessageReader
	dispatcher Dispatcher
	config     KafkaSourceConfig
	logger     *zap.Logger

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewKafkaSource creates a consumer group reader for the configured topic
func NewKafkaSource(config KafkaSourceConfig, dispatcher Dispatcher, logger *zap.Logger) (*KafkaSource, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        config.Brokers,
		Topic:          config.Topic,
		GroupID:        config.GroupID,
		MinBytes:       config.MinBytes,
		MaxBytes:       config.MaxBytes,
		MaxWait:        config.MaxWait,
		CommitInterval: config.CommitInterval,
	})
	return newKafkaSourceWithReader(reader, config, dispatcher, logger), nil
}

func newKafkaSourceWithReader(reader MessageReader, config KafkaSourceConfig, dispatcher Dispatcher, logger *zap.Logger) *KafkaSource {
	config.applyRetryDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaSource{
		reader:     reader,
		dispatcher: dispatcher,
		config:     config,
		logger:     logger,
	}
}

// Start begins consuming in the background
func (s *KafkaSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.consumeLoop(ctx)

	s.logger.Info("Kafka event source started",
		zap.String("topic", s.config.Topic),
		zap.String("group_id", s.config.GroupID),
	)
	return nil
}

// Stop stops consuming and closes the reader
func (s *KafkaSource) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := s.reader.Close(); err != nil {
		return fmt.Errorf("failed to close kafka reader: %w", err)
	}
	s.logger.Info("Kafka event source stopped")
	return nil
}

func (s *KafkaSource) consumeLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("Failed to fetch message", zap.Error(err))
			continue
		}

		event, err := DecodeMessage(msg)
		if err != nil {
			// Commit anyway so a malformed message cannot stall the partition
			s.logger.Warn("Dropping malformed event",
				zap.Int64("offset", msg.Offset),
				zap.Int("partition", msg.Partition),
				zap.Error(err),
			)
			s.commit(ctx, msg)
			continue
		}

		if err := s.handle(ctx, msg, event); err != nil {
			if ctx.Err() != nil {
				// stopped mid-retry; the message is redelivered after restart
				return
			}
			s.logger.Error("Leaving event uncommitted after failed attempts",
				zap.String("event_type", event.EventType()),
				zap.String("entity_id", event.EntityID()),
				zap.Int64("offset", msg.Offset),
				zap.Int("partition", msg.Partition),
				zap.Error(err),
			)
			continue
		}
		s.commit(ctx, msg)
	}
}

// handle dispatches the event until the handlers succeed, the attempts run
// out or ctx is done. Handlers run detached from ctx so Stop lets an
// in-flight attempt finish.
func (s *KafkaSource) handle(ctx context.Context, msg kafka.Message, event shared.DomainEvent) error {
	backoff := s.config.RetryBackoff
	for attempt := 1; ; attempt++ {
		err := s.dispatcher.Dispatch(context.WithoutCancel(ctx), event)
		if err == nil {
			return nil
		}
		if attempt >= s.config.MaxAttempts {
			return err
		}
		s.logger.Warn("Event handling failed, retrying",
			zap.String("event_type", event.EventType()),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, s.config.MaxRetryBackoff)
	}
}

func (s *KafkaSource) commit(ctx context.Context, msg kafka.Message) {
	if err := s.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
		s.logger.Error("Failed to commit message",
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
	}
}
