package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
	"github.com/vladislavdragonenkov/shop-orders/internal/messaging/kafka"
)

func deadLetter(t *testing.T, outboxID, orderID string) []byte {
	t.Helper()

	inner, err := json.Marshal(map[string]any{
		"outbox_id":      outboxID,
		"aggregate_type": domain.AggregateOrder,
		"aggregate_id":   orderID,
		"event_type":     domain.EventOrderStatusChanged,
		"payload":        map[string]any{"order_id": orderID, "status": "SHIPPED"},
		"publish_error":  "timeout",
	})
	require.NoError(t, err)

	value, err := json.Marshal(kafka.Envelope{
		ID:            outboxID,
		AggregateType: domain.AggregateOrder,
		AggregateID:   orderID,
		EventType:     domain.EventOrderStatusChanged,
		Payload:       inner,
	})
	require.NoError(t, err)
	return value
}

func noEnv(string) string { return "" }

func TestParseBrokers(t *testing.T) {
	require.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, parseBrokers(" broker-1:9092, ,broker-2:9092 "))
	require.Empty(t, parseBrokers(" , "))
}

func TestReadConfig_FromFlags(t *testing.T) {
	cfg, err := readConfig([]string{
		"-brokers=broker-1:9092,broker-2:9092",
		"-source-topic=orders.dlq",
		"-target-topic=orders.order.events",
		"-limit=10",
		"-execute=true",
		"-from-newest=true",
		"-idle-timeout=3s",
	}, noEnv)
	require.NoError(t, err)
	require.Len(t, cfg.brokers, 2)
	require.Equal(t, 10, cfg.limit)
	require.True(t, cfg.execute)
	require.True(t, cfg.fromNewest)
	require.Equal(t, 3*time.Second, cfg.idleTimeout)
}

func TestReadConfig_Defaults(t *testing.T) {
	env := func(key string) string {
		if key == "KAFKA_BROKERS" {
			return "kafka:9092"
		}
		return ""
	}

	cfg, err := readConfig(nil, env)
	require.NoError(t, err)
	require.Equal(t, []string{"kafka:9092"}, cfg.brokers)
	require.Equal(t, kafka.TopicDeadLetterQueue, cfg.sourceTopic)
	require.Equal(t, kafka.TopicOrderEvents, cfg.targetTopic)
	require.Equal(t, defaultReplayLimit, cfg.limit)
	require.False(t, cfg.execute)
}

func TestReadConfig_ValidationErrors(t *testing.T) {
	testCases := []struct {
		args []string
		want string
	}{
		{args: []string{"-brokers="}, want: "kafka brokers are required"},
		{args: []string{"-brokers=b:9092", "-source-topic= "}, want: "source-topic is required"},
		{args: []string{"-brokers=b:9092", "-target-topic="}, want: "target-topic is required"},
		{args: []string{"-brokers=b:9092", "-target-topic=orders.dlq"}, want: "must differ"},
		{args: []string{"-brokers=b:9092", "-limit=0"}, want: "limit must be > 0"},
		{args: []string{"-brokers=b:9092", "-idle-timeout=0s"}, want: "idle-timeout must be > 0"},
	}

	for _, tc := range testCases {
		_, err := readConfig(tc.args, noEnv)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("args %v: expected %q, got %v", tc.args, tc.want, err)
		}
	}
}

func TestProcessPartition_DryRun(t *testing.T) {
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer([]*sarama.ConsumerMessage{
				{Partition: 0, Offset: 0, Value: deadLetter(t, "outbox-1", "order-1")},
				{Partition: 0, Offset: 1, Value: []byte(`{"foo":"bar"}`)},
			}),
		},
	}
	cfg := config{sourceTopic: "orders.dlq", targetTopic: "orders.order.events", idleTimeout: 20 * time.Millisecond}

	stats, err := processPartition(context.Background(), consumer, client, nil, cfg, 0, 10)
	require.NoError(t, err)
	require.Equal(t, replayStats{processed: 2, replayed: 1, skipped: 1}, stats)
	require.Equal(t, []consumeCall{{partition: 0, offset: 0}}, consumer.calls)
}

func TestProcessPartition_ExecuteRepublishesOriginalEvent(t *testing.T) {
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 1}}}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer([]*sarama.ConsumerMessage{
				{Partition: 0, Offset: 0, Value: deadLetter(t, "outbox-7", "order-7")},
			}),
		},
	}
	publisher := &stubPublisher{}
	cfg := config{sourceTopic: "orders.dlq", targetTopic: "orders.order.events", execute: true, idleTimeout: 20 * time.Millisecond}

	stats, err := processPartition(context.Background(), consumer, client, publisher, cfg, 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, stats.replayed)

	published := publisher.messages()
	require.Len(t, published, 1)
	require.Equal(t, "outbox-7", published[0].ID)
	require.Equal(t, "order-7", published[0].AggregateID)
	require.Equal(t, domain.EventOrderStatusChanged, published[0].EventType)
	require.JSONEq(t, `{"order_id":"order-7","status":"SHIPPED"}`, string(published[0].Payload))
}

func TestProcessPartition_FromNewestStartOffset(t *testing.T) {
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 3, newest: 10}}}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{0: closedPartitionConsumer(nil)},
	}
	cfg := config{sourceTopic: "orders.dlq", fromNewest: true, idleTimeout: 20 * time.Millisecond}

	_, err := processPartition(context.Background(), consumer, client, nil, cfg, 0, 4)
	require.NoError(t, err)
	require.Equal(t, int64(6), consumer.calls[0].offset)

	consumer.calls = nil
	_, err = processPartition(context.Background(), consumer, client, nil, cfg, 0, 50)
	require.NoError(t, err)
	require.Equal(t, int64(3), consumer.calls[0].offset)
}

func TestProcessPartition_ErrorBranches(t *testing.T) {
	cfg := config{sourceTopic: "orders.dlq", targetTopic: "orders.order.events", execute: true, idleTimeout: 20 * time.Millisecond}

	clientOffsetErr := &stubOffsetClient{offsetErr: map[int32]error{0: errors.New("offset")}}
	_, err := processPartition(context.Background(), &stubPartitionConsumerSource{}, clientOffsetErr, &stubPublisher{}, cfg, 0, 1)
	require.ErrorContains(t, err, "oldest offset")

	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}
	_, err = processPartition(context.Background(), &stubPartitionConsumerSource{consumeErr: errors.New("consume")}, client, &stubPublisher{}, cfg, 0, 1)
	require.ErrorContains(t, err, "consume partition 0")

	pcWithErr := &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError, 1),
	}
	pcWithErr.errors <- &sarama.ConsumerError{Err: errors.New("consumer boom")}
	consumer := &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: pcWithErr}}
	_, err = processPartition(context.Background(), consumer, client, &stubPublisher{}, cfg, 0, 1)
	require.ErrorContains(t, err, "partition 0 consumer error")

	malformed := closedPartitionConsumer([]*sarama.ConsumerMessage{{Partition: 0, Offset: 0, Value: []byte(`{"id":"x","payload":"not-an-object"}`)}})
	consumer = &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: malformed}}
	stats, err := processPartition(context.Background(), consumer, client, &stubPublisher{}, cfg, 0, 1)
	require.NoError(t, err)
	require.Equal(t, 1, stats.skipped)

	ok := closedPartitionConsumer([]*sarama.ConsumerMessage{{Partition: 0, Offset: 0, Value: deadLetter(t, "outbox-1", "order-1")}})
	consumer = &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: ok}}
	_, err = processPartition(context.Background(), consumer, client, &stubPublisher{err: errors.New("send fail")}, cfg, 0, 1)
	require.ErrorContains(t, err, "publish replay message outbox-1")
}

func TestProcessPartition_IdleTimeoutAndContext(t *testing.T) {
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}
	cfg := config{sourceTopic: "orders.dlq", targetTopic: "orders.order.events", idleTimeout: 10 * time.Millisecond}

	idle := &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError),
	}
	consumer := &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: idle}}
	stats, err := processPartition(context.Background(), consumer, client, nil, cfg, 0, 1)
	require.NoError(t, err)
	require.Zero(t, stats.processed)
	require.True(t, idle.closed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	blocked := &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError),
	}
	consumer = &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: blocked}}
	_, err = processPartition(ctx, consumer, client, nil, cfg, 0, 1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunReplay(t *testing.T) {
	cfg := config{sourceTopic: "orders.dlq", targetTopic: "orders.order.events", limit: 1, idleTimeout: 20 * time.Millisecond}

	_, err := runReplay(context.Background(), cfg, nil, nil, nil)
	require.Error(t, err)

	client := &stubOffsetClient{
		partitions: []int32{2, 0},
		offsets: map[int32]offsetRange{
			0: {oldest: 0, newest: 2},
			2: {oldest: 0, newest: 2},
		},
	}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer([]*sarama.ConsumerMessage{{Partition: 0, Offset: 0, Value: deadLetter(t, "outbox-1", "order-1")}}),
			2: closedPartitionConsumer([]*sarama.ConsumerMessage{{Partition: 2, Offset: 0, Value: deadLetter(t, "outbox-2", "order-2")}}),
		},
	}

	stats, err := runReplay(context.Background(), cfg, client, consumer, nil)
	require.NoError(t, err)
	require.Equal(t, 1, stats.replayed)
	require.Len(t, consumer.calls, 1, "limit=1 must stop after the first partition")
	require.Equal(t, int32(0), consumer.calls[0].partition)

	executeCfg := cfg
	executeCfg.execute = true
	_, err = runReplay(context.Background(), executeCfg, client, consumer, nil)
	require.ErrorContains(t, err, "publisher is required")

	stats, err = runReplay(context.Background(), cfg, &stubOffsetClient{}, consumer, nil)
	require.NoError(t, err)
	require.Zero(t, stats.processed)

	_, err = runReplay(context.Background(), cfg, &stubOffsetClient{partitionsErr: errors.New("metadata")}, consumer, nil)
	require.ErrorContains(t, err, "get partitions")
}

func TestRun_UsesDependencies(t *testing.T) {
	oldDeps := newReplayDependencies
	defer func() { newReplayDependencies = oldDeps }()

	cfg := config{sourceTopic: "orders.dlq", targetTopic: "orders.order.events", limit: 1, execute: true, idleTimeout: 20 * time.Millisecond}

	newReplayDependencies = func(config) (*replayDependencies, error) {
		return nil, errors.New("deps failed")
	}
	require.ErrorContains(t, run(context.Background(), cfg), "deps failed")

	client := &stubOffsetClient{
		partitions: []int32{0},
		offsets:    map[int32]offsetRange{0: {oldest: 0, newest: 1}},
	}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer([]*sarama.ConsumerMessage{{Partition: 0, Offset: 0, Value: deadLetter(t, "outbox-1", "order-1")}}),
		},
	}
	publisher := &stubPublisher{}
	closed := false

	newReplayDependencies = func(config) (*replayDependencies, error) {
		return &replayDependencies{
			client:    client,
			consumer:  consumer,
			publisher: publisher,
			closeFn:   func() { closed = true },
		}, nil
	}
	require.NoError(t, run(context.Background(), cfg))
	require.True(t, closed)
	require.Len(t, publisher.messages(), 1)
}

type offsetRange struct {
	oldest int64
	newest int64
}

type stubOffsetClient struct {
	partitions    []int32
	partitionsErr error
	offsets       map[int32]offsetRange
	offsetErr     map[int32]error
	closed        bool
}

func (s *stubOffsetClient) GetOffset(_ string, partition int32, marker int64) (int64, error) {
	if err, ok := s.offsetErr[partition]; ok {
		return 0, err
	}

	r := s.offsets[partition]
	switch marker {
	case sarama.OffsetOldest:
		return r.oldest, nil
	case sarama.OffsetNewest:
		return r.newest, nil
	default:
		return 0, fmt.Errorf("unsupported marker %d", marker)
	}
}

func (s *stubOffsetClient) Partitions(string) ([]int32, error) {
	if s.partitionsErr != nil {
		return nil, s.partitionsErr
	}
	return append([]int32(nil), s.partitions...), nil
}

func (s *stubOffsetClient) Close() error {
	s.closed = true
	return nil
}

type consumeCall struct {
	partition int32
	offset    int64
}

type stubPartitionConsumerSource struct {
	consumers  map[int32]partitionConsumer
	consumeErr error
	calls      []consumeCall
	closed     bool
}

func (s *stubPartitionConsumerSource) ConsumePartition(_ string, partition int32, offset int64) (partitionConsumer, error) {
	s.calls = append(s.calls, consumeCall{partition: partition, offset: offset})
	if s.consumeErr != nil {
		return nil, s.consumeErr
	}
	pc, ok := s.consumers[partition]
	if !ok {
		return nil, fmt.Errorf("partition %d not configured", partition)
	}
	return pc, nil
}

func (s *stubPartitionConsumerSource) Close() error {
	s.closed = true
	return nil
}

type stubPartitionConsumer struct {
	messages chan *sarama.ConsumerMessage
	errors   chan *sarama.ConsumerError
	closed   bool
}

func (s *stubPartitionConsumer) Messages() <-chan *sarama.ConsumerMessage { return s.messages }
func (s *stubPartitionConsumer) Errors() <-chan *sarama.ConsumerError     { return s.errors }
func (s *stubPartitionConsumer) Close() error {
	s.closed = true
	return nil
}

func closedPartitionConsumer(messages []*sarama.ConsumerMessage) *stubPartitionConsumer {
	msgCh := make(chan *sarama.ConsumerMessage, len(messages))
	for _, msg := range messages {
		msgCh <- msg
	}
	close(msgCh)
	return &stubPartitionConsumer{messages: msgCh, errors: make(chan *sarama.ConsumerError)}
}

type stubPublisher struct {
	mu        sync.Mutex
	err       error
	published []domain.OutboxMessage
}

func (s *stubPublisher) Publish(_ context.Context, msg domain.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, msg)
	return nil
}

func (s *stubPublisher) messages() []domain.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OutboxMessage(nil), s.published...)
}
