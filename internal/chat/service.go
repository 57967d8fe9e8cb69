package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/docbook-ai/internal/observability/metrics"
	"github.com/wolfman30/docbook-ai/pkg/logging"
)

var chatTracer = otel.Tracer("docbook.internal.chat")

// EventMessage is the realtime event kind carrying an assistant reply.
const EventMessage = "chat_message"

const (
	defaultMaxTokens   = 300
	defaultTemperature = 0.7
)

// Directory is the doctor aggregate state read for the prompt.
type Directory interface {
	Specializations(ctx context.Context) ([]string, error)
	AvailableCount(ctx context.Context) (int, error)
}

// AppointmentCounter counts a patient's appointments.
type AppointmentCounter interface {
	CountForPatient(ctx context.Context, patientID string) (int, error)
}

// EventPublisher pushes events to a user's live connections.
type EventPublisher interface {
	Publish(userID, kind string, payload any)
}

// Option customizes the service.
type Option func(*Service)

// WithEnqueuer routes reply generation through a queue. Without one, replies
// are generated on a background goroutine.
func WithEnqueuer(e Enqueuer) Option {
	return func(s *Service) { s.enqueuer = e }
}

func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

func WithMetrics(m *metrics.ChatMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithGeneration sets the output bound and sampling temperature of model calls.
func WithGeneration(maxTokens int, temperature float32) Option {
	return func(s *Service) {
		if maxTokens > 0 {
			s.maxTokens = maxTokens
		}
		if temperature >= 0 {
			s.temperature = temperature
		}
	}
}

// Service persists chat threads and produces assistant replies.
type Service struct {
	store       Store
	llm         LLMClient
	directory   Directory
	appts       AppointmentCounter
	enqueuer    Enqueuer
	events      EventPublisher
	metrics     *metrics.ChatMetrics
	logger      *logging.Logger
	now         func() time.Time
	maxTokens   int
	temperature float32
}

// NewService creates the chat service. A nil llm means every reply comes from
// the rule-based responder.
func NewService(store Store, llm LLMClient, directory Directory, appts AppointmentCounter, logger *logging.Logger, opts ...Option) *Service {
	if store == nil || directory == nil || appts == nil {
		panic("chat: store, directory and appointment counter required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		store:       store,
		llm:         llm,
		directory:   directory,
		appts:       appts,
		logger:      logger,
		now:         time.Now,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendMessage stores the user's message and queues the assistant reply. It
// does not wait for the reply.
func (s *Service) SendMessage(ctx context.Context, userID, text string, c *Context) (*Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if c != nil && !TypeOf(c).Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidContext, c.Type)
	}

	msg := &Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   text,
		Context:   c,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Append(ctx, msg); err != nil {
		return nil, err
	}

	job := ReplyJob{ID: msg.ID, UserID: userID, Message: text, Context: c}
	if s.enqueuer == nil {
		go func() {
			if _, err := s.GenerateResponse(context.WithoutCancel(ctx), job.UserID, job.Message, job.Context); err != nil {
				s.logger.Error("failed to generate chat reply", "user_id", job.UserID, "error", err)
			}
		}()
		return msg, nil
	}
	if err := s.enqueuer.Enqueue(ctx, job); err != nil {
		return nil, err
	}
	return msg, nil
}

// GenerateResponse asks the model for a reply and stores it as an assistant
// message. When the model fails the rule-based reply is stored instead, so an
// error is returned only when the reply cannot be persisted.
func (s *Service) GenerateResponse(ctx context.Context, userID, text string, c *Context) (*Message, error) {
	ctx, span := chatTracer.Start(ctx, "chat.generate_response")
	defer span.End()
	span.SetAttributes(
		attribute.String("docbook.user_id", userID),
		attribute.String("docbook.chat_context", string(TypeOf(c))),
	)

	pc := s.promptContext(ctx, userID, text, c)
	reply, err := s.complete(ctx, pc)
	source := "model"
	if err != nil {
		source = "fallback"
		if !errors.Is(err, ErrExternalService) {
			err = fmt.Errorf("%w: %v", ErrExternalService, err)
		}
		span.RecordError(err)
		s.logger.Warn("chat model unavailable, using fallback reply", "user_id", userID, "error", err)
		reply = FallbackReply(text, pc.Specializations)
	}
	span.SetAttributes(attribute.String("docbook.chat_reply_source", source))

	msg := &Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   reply,
		IsAI:      true,
		Context:   c,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Append(ctx, msg); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.metrics.ObserveReply(source)
	if s.events != nil {
		s.events.Publish(userID, EventMessage, msg)
	}
	return msg, nil
}

// Messages returns the user's thread oldest first.
func (s *Service) Messages(ctx context.Context, userID string) ([]*Message, error) {
	return s.store.List(ctx, userID)
}

// promptContext gathers the aggregate state for the prompt. Lookup failures
// leave the corresponding value empty.
func (s *Service) promptContext(ctx context.Context, userID, text string, c *Context) PromptContext {
	pc := PromptContext{UserMessage: text, ContextType: TypeOf(c)}

	specs, err := s.directory.Specializations(ctx)
	if err != nil {
		s.logger.Warn("chat context: specializations unavailable", "error", err)
	}
	pc.Specializations = specs

	if pc.AppointmentCount, err = s.appts.CountForPatient(ctx, userID); err != nil {
		s.logger.Warn("chat context: appointment count unavailable", "user_id", userID, "error", err)
	}
	if pc.DoctorCount, err = s.directory.AvailableCount(ctx); err != nil {
		s.logger.Warn("chat context: doctor count unavailable", "error", err)
	}
	return pc
}

func (s *Service) complete(ctx context.Context, pc PromptContext) (string, error) {
	if s.llm == nil {
		return "", fmt.Errorf("%w: no language model configured", ErrExternalService)
	}
	start := time.Now()
	resp, err := s.llm.Complete(ctx, LLMRequest{
		System:      BuildSystemPrompt(pc),
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: pc.UserMessage}},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.ObserveLLMLatency(outcome, time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("%w: empty reply", ErrExternalService)
	}
	return resp.Text, nil
}
