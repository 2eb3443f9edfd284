// Package event provides a pub/sub event system for session lifecycle
// notifications using watermill.
package event

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/appforge-ai/appforge/internal/logging"
)

// eventsTopic is the single gochannel topic all events flow through.
const eventsTopic = "appforge.events"

// Subscriber is a function that receives events.
type Subscriber func(event Event)

// subscriberEntry wraps a subscriber with an ID.
type subscriberEntry struct {
	id uint64
	fn Subscriber
}

// Bus is the event bus that manages pub/sub. Async publishes travel
// through watermill's gochannel as JSON messages; a pump goroutine
// decodes them back into typed payloads and fans out to the tracked
// subscribers.
type Bus struct {
	mu sync.RWMutex

	pubsub *gochannel.GoChannel

	subscribers map[EventType][]subscriberEntry
	global      []subscriberEntry

	nextID       uint64
	closed       bool
	closedCancel context.CancelFunc
}

// globalBus is the default event bus instance.
var globalBus = newBus()

func newBus() *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: 100,
				Persistent:          false,
			},
			watermill.NopLogger{},
		),
		subscribers:  make(map[EventType][]subscriberEntry),
		closedCancel: cancel,
	}

	msgs, err := b.pubsub.Subscribe(ctx, eventsTopic)
	if err != nil {
		log := logging.Component("event")
		log.Error().Err(err).Msg("event pump subscription failed")
		return b
	}
	go b.pump(msgs)

	return b
}

// NewBus creates a new event bus instance.
func NewBus() *Bus {
	return newBus()
}

// pump drains the gochannel subscription, restoring typed payloads and
// fanning out to subscribers. Exits when the pubsub closes.
func (b *Bus) pump(msgs <-chan *message.Message) {
	for msg := range msgs {
		event, err := decodeEvent(msg.Payload)
		if err != nil {
			log := logging.Component("event")
			log.Warn().Err(err).Msg("undecodable event dropped")
			msg.Ack()
			continue
		}
		for _, sub := range b.collect(event.Type) {
			go sub(event)
		}
		msg.Ack()
	}
}

func (b *Bus) newID() uint64 {
	return atomic.AddUint64(&b.nextID, 1)
}

// Subscribe registers a subscriber for a specific event type on the
// global bus. Returns an unsubscribe function.
func Subscribe(eventType EventType, fn Subscriber) func() {
	return globalBus.Subscribe(eventType, fn)
}

func (b *Bus) Subscribe(eventType EventType, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := b.newID()
	b.subscribers[eventType] = append(b.subscribers[eventType], subscriberEntry{id: id, fn: fn})

	return func() {
		b.unsubscribe(eventType, id)
	}
}

// SubscribeAll registers a subscriber for all events on the global bus.
// Returns an unsubscribe function.
func SubscribeAll(fn Subscriber) func() {
	return globalBus.SubscribeAll(fn)
}

func (b *Bus) SubscribeAll(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := b.newID()
	b.global = append(b.global, subscriberEntry{id: id, fn: fn})

	return func() {
		b.unsubscribeGlobal(id)
	}
}

func (b *Bus) unsubscribe(eventType EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[eventType]
	for i, entry := range subs {
		if entry.id == id {
			b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

func (b *Bus) unsubscribeGlobal(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, entry := range b.global {
		if entry.id == id {
			b.global = append(b.global[:i], b.global[i+1:]...)
			break
		}
	}
}

// collect gathers the subscribers that should receive an event.
func (b *Bus) collect(eventType EventType) []Subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil
	}

	subs := make([]Subscriber, 0, len(b.subscribers[eventType])+len(b.global))
	for _, entry := range b.subscribers[eventType] {
		subs = append(subs, entry.fn)
	}
	for _, entry := range b.global {
		subs = append(subs, entry.fn)
	}
	return subs
}

// Publish sends an event to all subscribers asynchronously through the
// gochannel broker. Each subscriber is called in its own goroutine to
// prevent blocking.
func Publish(event Event) {
	globalBus.Publish(event)
}

func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return
	}

	payload, err := encodeEvent(event)
	if err == nil {
		if err = b.pubsub.Publish(eventsTopic, message.NewMessage(watermill.NewUUID(), payload)); err == nil {
			return
		}
	}

	// The broker path failed (unmarshalable payload or racing close);
	// hand off to subscribers directly so the event is not lost.
	log := logging.Component("event")
	log.Warn().Err(err).Str("type", string(event.Type)).
		Msg("broker publish failed, delivering directly")
	for _, sub := range b.collect(event.Type) {
		go sub(event)
	}
}

// PublishSync sends an event to all subscribers synchronously. All
// subscribers are called in the current goroutine before returning, so
// the broker is bypassed and payloads keep their original values.
func PublishSync(event Event) {
	globalBus.PublishSync(event)
}

func (b *Bus) PublishSync(event Event) {
	for _, sub := range b.collect(event.Type) {
		sub(event)
	}
}

// Reset clears all subscribers from the global bus (for testing).
func Reset() {
	globalBus.mu.Lock()
	globalBus.closed = true
	globalBus.closedCancel()
	globalBus.mu.Unlock()

	_ = globalBus.pubsub.Close()

	// Small delay to allow goroutines to clean up
	time.Sleep(10 * time.Millisecond)

	globalBus = newBus()
}

// Close closes the bus and all its subscribers.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.closedCancel()
	b.subscribers = make(map[EventType][]subscriberEntry)
	b.global = nil
	b.mu.Unlock()

	return b.pubsub.Close()
}

// envelope is the broker wire form of an Event.
type envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

func encodeEvent(event Event) ([]byte, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: event.Type, Data: data})
}

// decodeEvent restores an event from its broker wire form, mapping the
// payload back onto the concrete type for its event type so that
// subscribers and SessionID keep working on broker-delivered events.
func decodeEvent(payload []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Event{}, err
	}

	event := Event{Type: env.Type}
	if len(env.Data) == 0 {
		return event, nil
	}

	var err error
	switch env.Type {
	case SessionCreated:
		var d SessionCreatedData
		err = json.Unmarshal(env.Data, &d)
		event.Data = d
	case SessionBootstrapped:
		var d SessionBootstrappedData
		err = json.Unmarshal(env.Data, &d)
		event.Data = d
	case MessageCreated:
		var d MessageCreatedData
		err = json.Unmarshal(env.Data, &d)
		event.Data = d
	case TurnCompleted:
		var d TurnCompletedData
		err = json.Unmarshal(env.Data, &d)
		event.Data = d
	case BlueprintChunk:
		var d BlueprintChunkData
		err = json.Unmarshal(env.Data, &d)
		event.Data = d
	}
	if event.Data == nil || err != nil {
		// Unknown event type, or a payload that does not fit the
		// declared type; keep the generic decoding.
		var d any
		if uerr := json.Unmarshal(env.Data, &d); uerr != nil {
			return Event{}, uerr
		}
		event.Data = d
	}
	return event, nil
}
