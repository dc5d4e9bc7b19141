package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"chat-backend/internal/domain"

	"go.uber.org/zap"
)

const (
	DefaultHistoryWindow     = 20
	DefaultGenerateTimeout   = 30 * time.Second
	DefaultSystemInstruction = "You are a helpful assistant."
	DefaultFallbackReply     = "Sorry, I couldn't generate a reply right now. Please try again."
)

type AssemblerConfig struct {
	HistoryWindow     int
	SystemInstruction string
	FallbackReply     string
	Timeout           time.Duration
}

func (c *AssemblerConfig) withDefaults() AssemblerConfig {
	out := *c
	if out.HistoryWindow <= 0 {
		out.HistoryWindow = DefaultHistoryWindow
	}
	if out.SystemInstruction == "" {
		out.SystemInstruction = DefaultSystemInstruction
	}
	if out.FallbackReply == "" {
		out.FallbackReply = DefaultFallbackReply
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultGenerateTimeout
	}
	return out
}

// Exchange is one user turn and the reply stored for it.
type Exchange struct {
	User      *domain.Message
	Assistant *domain.Message
}

// Assembler turns a user message into a stored exchange: it records the
// message, builds the recent context, asks the generator for a reply and
// records that too.
type Assembler struct {
	messages  *MessageLog
	chatRepo  domain.ChatRepository
	generator domain.ReplyGenerator
	locker    domain.SessionLocker
	cfg       AssemblerConfig
	log       *zap.Logger
}

// NewAssembler wires an Assembler. locker may be nil, in which case sends
// to the same session are not serialized.
func NewAssembler(
	messages *MessageLog,
	chatRepo domain.ChatRepository,
	generator domain.ReplyGenerator,
	locker domain.SessionLocker,
	cfg AssemblerConfig,
	log *zap.Logger,
) *Assembler {
	return &Assembler{
		messages:  messages,
		chatRepo:  chatRepo,
		generator: generator,
		locker:    locker,
		cfg:       cfg.withDefaults(),
		log:       log,
	}
}

// Send stores text as a user message and answers it. Generator failures
// never surface: the fallback reply is stored instead.
func (a *Assembler) Send(ctx context.Context, userID, sessionID, text string) (*Exchange, error) {
	if a.locker != nil {
		unlock, err := a.locker.Lock(ctx, userID+"/"+sessionID)
		if err != nil {
			a.log.Warn("session lock not acquired, continuing unserialized",
				zap.String("session_id", sessionID), zap.Error(err))
		} else {
			defer unlock()
		}
	}

	userMsg, err := a.messages.Append(ctx, userID, sessionID, domain.RoleUser, text)
	if err != nil {
		return nil, err
	}

	history, err := a.chatRepo.ListRecentMessages(ctx, userID, sessionID, a.cfg.HistoryWindow)
	if err != nil {
		a.log.Warn("load conversation window failed, answering without history",
			zap.String("session_id", sessionID), zap.Error(err))
		history = nil
	}
	window := buildWindow(history, userMsg, a.cfg.HistoryWindow)
	prompt := renderPrompt(window, a.cfg.SystemInstruction)

	reply := a.messages.clip(a.generate(ctx, sessionID, prompt))

	// The user turn is already durable; store the reply even if the caller
	// has gone away so the log never ends on an unanswered message.
	assistantMsg, err := a.messages.Append(context.WithoutCancel(ctx), userID, sessionID, domain.RoleAssistant, reply)
	if err != nil {
		return nil, err
	}
	return &Exchange{User: userMsg, Assistant: assistantMsg}, nil
}

func (a *Assembler) generate(ctx context.Context, sessionID, prompt string) string {
	genCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	start := time.Now()
	reply, err := a.generator.Generate(genCtx, prompt)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errors.New("empty reply")
	}
	if err != nil {
		a.log.Warn("reply generation failed, using fallback",
			zap.String("session_id", sessionID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(errors.Join(domain.ErrGeneration, err)))
		return a.cfg.FallbackReply
	}
	a.log.Debug("reply generated",
		zap.String("session_id", sessionID),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("prompt_bytes", len(prompt)))
	return reply
}

// buildWindow drops malformed entries from history and makes sure trigger
// is its newest element, keeping at most size messages.
func buildWindow(history []*domain.Message, trigger *domain.Message, size int) []*domain.Message {
	window := make([]*domain.Message, 0, size)
	for _, m := range history {
		if m == nil || (m.Role == "" && m.Content == "") {
			continue
		}
		window = append(window, m)
	}
	if len(window) > size {
		window = window[len(window)-size:]
	}

	for _, m := range window {
		if m.ID == trigger.ID {
			return window
		}
	}
	if len(window) >= size {
		window = window[len(window)-size+1:]
	}
	return append(window, trigger)
}

// renderPrompt produces the single text input of the generator:
//
//	<system instruction>
//	User: ...
//	Assistant: ...
//	Assistant:
func renderPrompt(window []*domain.Message, defaultInstruction string) string {
	instruction := defaultInstruction
	for _, m := range window {
		if m.Role == domain.RoleSystem {
			instruction = m.Content
			break
		}
	}

	lines := make([]string, 0, len(window)+2)
	lines = append(lines, instruction)
	for _, m := range window {
		switch m.Role {
		case domain.RoleSystem:
			continue
		case domain.RoleAssistant:
			lines = append(lines, "Assistant: "+m.Content)
		default:
			lines = append(lines, "User: "+m.Content)
		}
	}
	lines = append(lines, "Assistant:")
	return strings.Join(lines, "\n")
}
