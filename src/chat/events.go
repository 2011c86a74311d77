package chat

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// EventType represents the type of store event
type EventType string

const (
	EventStreamStart EventType = "stream_start"
	EventStreamChunk EventType = "stream_chunk"
	EventStreamEnd   EventType = "stream_end"
	EventError       EventType = "error"
	EventStructure   EventType = "structure_changed"
)

// ErrSinkClosed is returned by Send after Close.
var ErrSinkClosed = errors.New("event sink is closed")

// Event is the base interface for all store events
type Event interface {
	GetType() EventType
	GetTimestamp() time.Time
	GetConversationID() string
}

// BaseEvent contains common fields for all events
type BaseEvent struct {
	Type           EventType `json:"type"`
	Timestamp      time.Time `json:"timestamp"`
	ConversationID string    `json:"conversation_id"`
}

func (e BaseEvent) GetType() EventType        { return e.Type }
func (e BaseEvent) GetTimestamp() time.Time   { return e.Timestamp }
func (e BaseEvent) GetConversationID() string { return e.ConversationID }

// StreamStartEvent is sent once the assistant placeholder exists.
type StreamStartEvent struct {
	BaseEvent
	MessageID string `json:"message_id"`
	Model     string `json:"model"`
}

// StreamChunkEvent carries one delta and the token estimate so far.
type StreamChunkEvent struct {
	BaseEvent
	MessageID  string `json:"message_id"`
	Delta      string `json:"delta"`
	TokenCount int    `json:"token_count"`
}

// StreamEndEvent carries the finalized assistant message.
type StreamEndEvent struct {
	BaseEvent
	Message Message `json:"message"`
}

// ErrorEvent reports a failure that did not end up in message content.
type ErrorEvent struct {
	BaseEvent
	Error   error  `json:"error"`
	Context string `json:"context"`
}

// StructureEvent reports a change to the conversation/folder tree.
type StructureEvent struct {
	BaseEvent
	Action string `json:"action"`
}

// EventSink is the interface for handling store events
type EventSink interface {
	Send(event Event) error
	Close() error
}

// EventProcessor processes events delivered by a ChannelEventSink.
type EventProcessor interface {
	Process(event Event) error
	Close() error
}

// ChannelEventSink delivers events to processors on a background goroutine.
type ChannelEventSink struct {
	events     chan Event
	processors []EventProcessor
	done       chan struct{}
	logger     *slog.Logger

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewChannelEventSink creates a new channel-based event sink
func NewChannelEventSink(bufferSize int, logger *slog.Logger, processors ...EventProcessor) *ChannelEventSink {
	if logger == nil {
		logger = slog.Default()
	}
	sink := &ChannelEventSink{
		events:     make(chan Event, bufferSize),
		processors: processors,
		done:       make(chan struct{}),
		logger:     logger.With("component", "event_sink"),
	}
	go sink.processEvents()
	return sink
}

// Send queues event, blocking while the buffer is full.
func (s *ChannelEventSink) Send(event Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}
	s.events <- event
	return nil
}

// Close drains pending events and closes every processor.
func (s *ChannelEventSink) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.events)
		s.mu.Unlock()
		<-s.done

		for _, p := range s.processors {
			if err := p.Close(); err != nil {
				s.logger.Warn("failed to close processor", "error", err)
			}
		}
	})
	return nil
}

func (s *ChannelEventSink) processEvents() {
	defer close(s.done)
	for event := range s.events {
		for _, processor := range s.processors {
			if err := processor.Process(event); err != nil {
				s.logger.Warn("failed to process event", "type", event.GetType(), "error", err)
			}
		}
	}
}

// FuncEventSink calls a function synchronously for every event.
type FuncEventSink func(event Event)

func (f FuncEventSink) Send(event Event) error {
	f(event)
	return nil
}

func (f FuncEventSink) Close() error { return nil }

type nopSink struct{}

func (nopSink) Send(Event) error { return nil }
func (nopSink) Close() error     { return nil }

// emitter fills in the common fields.
type emitter struct {
	sink   EventSink
	clock  func() time.Time
	logger *slog.Logger
}

func (e *emitter) base(t EventType, conversationID string) BaseEvent {
	return BaseEvent{Type: t, Timestamp: e.clock(), ConversationID: conversationID}
}

func (e *emitter) send(ev Event) {
	if err := e.sink.Send(ev); err != nil {
		e.logger.Debug("event dropped", "type", ev.GetType(), "error", err)
	}
}

func (e *emitter) streamStart(conversationID, messageID, model string) {
	e.send(&StreamStartEvent{BaseEvent: e.base(EventStreamStart, conversationID), MessageID: messageID, Model: model})
}

func (e *emitter) streamChunk(conversationID, messageID, delta string, tokens int) {
	e.send(&StreamChunkEvent{BaseEvent: e.base(EventStreamChunk, conversationID), MessageID: messageID, Delta: delta, TokenCount: tokens})
}

func (e *emitter) streamEnd(msg Message) {
	e.send(&StreamEndEvent{BaseEvent: e.base(EventStreamEnd, msg.ConversationID), Message: msg})
}

func (e *emitter) fail(conversationID string, err error, where string) {
	e.send(&ErrorEvent{BaseEvent: e.base(EventError, conversationID), Error: err, Context: where})
}

func (e *emitter) structure(conversationID, action string) {
	e.send(&StructureEvent{BaseEvent: e.base(EventStructure, conversationID), Action: action})
}
