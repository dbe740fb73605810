package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

type recorded struct {
	topic string
	event Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recorded
	err    error
	block  chan struct{}
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, event Event) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recorded{topic, event})
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestTopics(t *testing.T) {
	if got := CustomerTopic("42"); got != "customer:42" {
		t.Errorf("unexpected customer topic %s", got)
	}
	if got := RestaurantTopic("r9"); got != "restaurant:r9" {
		t.Errorf("unexpected restaurant topic %s", got)
	}
	if got := RoutingKey("restaurant:r9"); got != "restaurant.r9" {
		t.Errorf("unexpected routing key %s", got)
	}
}

func TestNewOrderPayloadJSON(t *testing.T) {
	data, err := json.Marshal(Event{Type: EventNewOrder, Payload: NewOrderPayload{
		OrderID:     "o1",
		FinalAmount: decimal.RequireFromString("30"),
		ItemCount:   3,
	}})
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		Payload map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Payload["final_amount"] != "30.00" || out.Payload["order_id"] != "o1" || out.Payload["item_count"] != float64(3) {
		t.Errorf("unexpected payload %s", data)
	}
}

func TestMultiPublishesToAll(t *testing.T) {
	ok := &recordingPublisher{}
	failing := &recordingPublisher{err: errors.New("broker down")}

	err := Multi{failing, ok}.Publish(context.Background(), "customer:1", Event{Type: EventStatusChanged})
	if err == nil {
		t.Error("expected joined error")
	}
	if ok.count() != 1 || failing.count() != 1 {
		t.Errorf("expected both publishers called, got %d and %d", ok.count(), failing.count())
	}
}

func TestAsyncDeliversAndDrains(t *testing.T) {
	next := &recordingPublisher{}
	a := NewAsync(next, 8, 2, time.Second)

	for i := 0; i < 5; i++ {
		if err := a.Publish(context.Background(), "restaurant:r1", Event{Type: EventNewOrder}); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if next.count() != 5 {
		t.Errorf("expected 5 delivered events, got %d", next.count())
	}
	if err := a.Publish(context.Background(), "x", Event{}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}
}

func TestAsyncKeepsTopicOrder(t *testing.T) {
	next := &recordingPublisher{}
	a := NewAsync(next, 64, 4, time.Second)

	topics := []string{"customer:1", "customer:2", "restaurant:1"}
	for i := 0; i < 10; i++ {
		for _, topic := range topics {
			ev := Event{Type: EventStatusChanged, Payload: i}
			if err := a.Publish(context.Background(), topic, ev); err != nil {
				t.Fatalf("publish: %v", err)
			}
		}
	}
	if err := a.Close(context.Background()); err != nil {
		t.Fatal(err)
	}

	last := map[string]int{}
	for _, r := range next.events {
		n := r.event.Payload.(int)
		if prev, ok := last[r.topic]; ok && n != prev+1 {
			t.Fatalf("topic %s out of order: %d after %d", r.topic, n, prev)
		}
		last[r.topic] = n
	}
	if len(next.events) != 30 {
		t.Errorf("expected 30 events, got %d", len(next.events))
	}
}

func TestAsyncNeverBlocks(t *testing.T) {
	next := &recordingPublisher{block: make(chan struct{})}
	a := NewAsync(next, 1, 1, time.Second)

	done := make(chan error, 3)
	go func() {
		for i := 0; i < 3; i++ {
			done <- a.Publish(context.Background(), "customer:1", Event{Type: EventStatusChanged})
		}
	}()

	var full int
	for i := 0; i < 3; i++ {
		select {
		case err := <-done:
			if errors.Is(err, ErrQueueFull) {
				full++
			}
		case <-time.After(time.Second):
			t.Fatal("Publish blocked on a stalled transport")
		}
	}
	if full == 0 {
		t.Error("expected at least one dropped event")
	}

	close(next.block)
	_ = a.Close(context.Background())
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w)

	err := p.Publish(context.Background(), "customer:7", Event{Type: EventStatusChanged, Payload: StatusChangedPayload{OrderID: "o1", Status: "confirmed"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "customer:7" {
		t.Errorf("expected key customer:7, got %s", msg.Key)
	}

	var decoded struct {
		Event   string            `json:"event"`
		Payload map[string]string `json:"payload"`
	}
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Event != EventStatusChanged || decoded.Payload["status"] != "confirmed" {
		t.Errorf("unexpected body: %s", msg.Value)
	}
}

type fakeRedis struct {
	channel string
	message []byte
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.message = message.([]byte)
	return redis.NewIntResult(1, nil)
}

func TestRedisPublisher(t *testing.T) {
	f := &fakeRedis{}
	if err := NewRedisPublisher(f).Publish(context.Background(), "restaurant:r1", Event{Type: EventNewOrder}); err != nil {
		t.Fatal(err)
	}
	if f.channel != "restaurant:r1" {
		t.Errorf("unexpected channel %s", f.channel)
	}
	if !json.Valid(f.message) {
		t.Errorf("expected JSON payload, got %s", f.message)
	}
}

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return nil
}

func TestAMQPPublisher(t *testing.T) {
	ch := &fakeChannel{}
	p := NewAMQPPublisher(ch, "notifications_topic")

	if err := p.Publish(context.Background(), "customer:5", Event{Type: EventStatusChanged}); err != nil {
		t.Fatal(err)
	}
	if ch.exchange != "notifications_topic" || ch.key != "customer.5" {
		t.Errorf("unexpected exchange/key %s/%s", ch.exchange, ch.key)
	}
	if ch.msg.Type != EventStatusChanged || ch.msg.ContentType != "application/json" {
		t.Errorf("unexpected publishing: %+v", ch.msg)
	}
	if err := p.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}
