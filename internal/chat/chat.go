// Package chat coordinates one chat surface: it owns the conversation,
// drives the open/awaiting-reply state machine, talks to the transport, and
// turns every failure into a user-facing fallback message instead of an
// error. Commands published on the bus are submitted through the same flow
// as direct calls.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"OptimaChat/internal/bus"
	"OptimaChat/internal/cache"
	"OptimaChat/internal/conversation"
	"OptimaChat/internal/transport"
	"OptimaChat/internal/typewriter"
)

const (
	StateIdle          = "idle"
	StateOpen          = "open"
	StateAwaitingReply = "awaiting_reply"
)

// Fallback replies. Unreachable and malformed backends read differently to
// the user, but both are terminal for the request; nothing retries.
const (
	FallbackUnavailable = "The assistant could not be reached. Please check your connection and try again."
	FallbackMalformed   = "An error occurred processing your request, please try again."
)

// ErrEmptyInput rejects submissions whose text trims to nothing. It is the
// only error Submit returns; transport failures become fallback messages.
var ErrEmptyInput = errors.New("message text is empty")

// Options configures a Surface. Remote is required; everything else is
// optional.
type Options struct {
	Remote    transport.Sender
	Offline   transport.Sender
	Cache     *cache.Store
	UseCache  bool
	Store     *conversation.Store
	Bus       *bus.Bus
	Logger    *slog.Logger
	Tracer    trace.Tracer
	Meter     metric.Meter
	TypeSpeed time.Duration
}

// Surface is the orchestration controller for one chat surface instance.
type Surface struct {
	remote    transport.Sender
	offline   transport.Sender
	cache     *cache.Store
	useCache  bool
	store     *conversation.Store
	logger    *slog.Logger
	tracer    trace.Tracer
	meter     metric.Meter
	typeSpeed time.Duration

	// sendMu serializes overlapping submits: a second Submit while a
	// request is in flight waits for the first reply, preserving FIFO
	// append order.
	sendMu sync.Mutex

	mu     sync.Mutex
	state  string
	conv   *conversation.Conversation
	target string // id of the bot message the typewriter should animate

	b        *bus.Bus
	busID    int
	shutdown chan struct{}
	once     sync.Once
}

// New creates a surface and, when a bus is configured, starts consuming
// injected submit commands from it.
func New(opts Options) *Surface {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Surface{
		remote:    opts.Remote,
		offline:   opts.Offline,
		cache:     opts.Cache,
		useCache:  opts.UseCache,
		store:     opts.Store,
		logger:    opts.Logger,
		tracer:    opts.Tracer,
		meter:     opts.Meter,
		typeSpeed: opts.TypeSpeed,
		state:     StateIdle,
		conv:      conversation.New(),
		b:         opts.Bus,
		shutdown:  make(chan struct{}),
	}

	if s.b != nil {
		id, ch := s.b.Subscribe(16)
		s.busID = id
		go s.consumeCommands(ch)
	}

	return s
}

func (s *Surface) consumeCommands(ch <-chan bus.Command) {
	for {
		select {
		case cmd, ok := <-ch:
			if !ok {
				return
			}
			if _, err := s.Submit(context.Background(), cmd.Text); err != nil {
				s.logger.Warn("ignored injected command", "source", cmd.Source, "error", err)
			}
		case <-s.shutdown:
			return
		}
	}
}

// Shutdown detaches the surface from the bus and stops its command loop.
func (s *Surface) Shutdown() {
	s.once.Do(func() {
		close(s.shutdown)
		if s.b != nil {
			s.b.Unsubscribe(s.busID)
		}
	})
}

// Submit runs one request round-trip: append the user message, call the
// transport, append the reply or a fallback. The returned message is the
// bot's; no transport failure escapes as an error.
func (s *Surface) Submit(ctx context.Context, text string) (conversation.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return conversation.Message{}, ErrEmptyInput
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.Start(ctx, "chat_submit")
		defer span.End()
	}

	s.mu.Lock()
	if s.state == StateIdle {
		s.state = StateOpen
	}
	s.conv.Append(conversation.NewMessage(conversation.SenderUser, text))
	history := s.conv.Messages()
	s.state = StateAwaitingReply
	s.mu.Unlock()

	s.countMessage(ctx, conversation.SenderUser)

	reply, fromCache := s.resolveReply(ctx, history)
	if fromCache {
		s.logger.Debug("reply served from cache")
	}
	botMsg := conversation.NewMessage(conversation.SenderBot, reply)

	s.mu.Lock()
	s.conv.Append(botMsg)
	s.target = botMsg.ID
	if s.state == StateAwaitingReply {
		s.state = StateOpen
	}
	s.mu.Unlock()

	s.countMessage(ctx, conversation.SenderBot)

	if s.store != nil {
		go func() {
			if err := s.store.Save(s.conv); err != nil {
				s.logger.Error("failed to save conversation", "error", err)
			}
		}()
	}

	return botMsg, nil
}

// resolveReply picks the reply source: cache, remote backend, offline
// canned replies when the backend is down, or a fallback string on failure.
func (s *Surface) resolveReply(ctx context.Context, history []conversation.Message) (string, bool) {
	var key string
	if s.cache != nil && s.useCache {
		key = cache.Key(history)
		if cached, ok := s.cache.Get(key); ok {
			s.logger.Info("cache hit", "key", key[:16])
			return cached, true
		}
	}

	sender := s.remote
	if s.offline != nil && !s.remote.Available(ctx) {
		s.logger.Warn("backend unavailable, serving offline reply")
		sender = s.offline
	}

	reply, err := sender.Send(ctx, history)
	if err != nil {
		s.logger.Error("failed to send message", "error", err)
		if errors.Is(err, transport.ErrUnavailable) {
			return FallbackUnavailable, false
		}
		return FallbackMalformed, false
	}

	if key != "" {
		s.cache.Put(key, reply)
		s.logger.Info("cached response", "key", key[:16])
	}
	return reply, false
}

func (s *Surface) countMessage(ctx context.Context, sender string) {
	if s.meter == nil {
		return
	}
	counter, err := s.meter.Int64Counter(
		"chat.messages",
		metric.WithDescription("Chat messages appended, by sender"),
	)
	if err != nil {
		s.logger.Warn("failed to create counter", "error", err)
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("sender", sender)))
}

// Present returns a typewriter presenter for the bot message the surface
// most recently marked as the animation target. The target is consumed:
// a second call before the next reply reports no target.
func (s *Surface) Present(onComplete func()) (*typewriter.Presenter, conversation.Message, bool) {
	s.mu.Lock()
	target := s.target
	s.target = ""
	s.mu.Unlock()

	if target == "" {
		return nil, conversation.Message{}, false
	}
	for _, msg := range s.conv.Messages() {
		if msg.ID == target {
			return typewriter.New(msg.Text, s.typeSpeed, onComplete), msg, true
		}
	}
	return nil, conversation.Message{}, false
}

// Open makes the surface visible.
func (s *Surface) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle {
		s.state = StateOpen
	}
}

// Close collapses the surface. The conversation is preserved in memory;
// only Clear discards it.
func (s *Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
}

// Clear empties the conversation.
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conv.Clear()
	s.target = ""
}

// State reports the surface state.
func (s *Surface) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Conversation exposes the surface's message store.
func (s *Surface) Conversation() *conversation.Conversation {
	return s.conv
}
