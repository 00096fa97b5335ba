package bridge

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/voicebridge/twilio-realtime/shared"
	"go.uber.org/zap"
)

// Coordinator primes a freshly opened AI connection. The configuration
// must reach the service before it can be asked to generate anything, so
// the order here is strict: session configuration first, then the scripted
// opening turn, then the response trigger. The opening turn is attributed
// to the user role so the AI starts speaking instead of waiting for the
// call recipient.
type Coordinator struct {
	logger   shared.LoggerAdapter
	cfg      SessionConfig
	greeting string
}

func NewCoordinator(logger shared.LoggerAdapter, cfg SessionConfig, greeting string) (*Coordinator, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if cfg.Voice == "" || cfg.Instructions == "" {
		return nil, shared.ErrNoConfig
	}
	if greeting == "" {
		return nil, fmt.Errorf("no opening line provided")
	}
	return &Coordinator{logger: logger, cfg: cfg, greeting: greeting}, nil
}

// Prime sends the handshake sequence through send, one wire message per
// call, stopping at the first failure.
func (c *Coordinator) Prime(send func(data []byte) error) error {
	update, err := sonic.Marshal(sessionUpdateCommand{
		Type: "session.update",
		Session: sessionPayload{
			TurnDetection:     turnDetectionPayload{Type: c.cfg.TurnDetection},
			InputAudioFormat:  c.cfg.InputAudioFormat,
			OutputAudioFormat: c.cfg.OutputAudioFormat,
			Voice:             c.cfg.Voice,
			Instructions:      c.cfg.Instructions,
			Modalities:        c.cfg.Modalities,
			Temperature:       c.cfg.Temperature,
		},
	})
	if err != nil {
		return fmt.Errorf("marshaling session update: %w", err)
	}
	if err := send(update); err != nil {
		return shared.NewError(shared.KindConnection, "bridge.Coordinator.Prime", err)
	}
	c.logger.Debug("session configuration sent", zap.String("voice", c.cfg.Voice))

	turn, err := sonic.Marshal(conversationItemCommand{
		Type: "conversation.item.create",
		Item: conversationItem{
			Type: "message",
			Role: "user",
			Content: []conversationPart{
				{Type: "input_text", Text: c.greeting},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("marshaling opening turn: %w", err)
	}
	if err := send(turn); err != nil {
		return shared.NewError(shared.KindConnection, "bridge.Coordinator.Prime", err)
	}

	trigger, err := sonic.Marshal(responseCreateCommand{Type: "response.create"})
	if err != nil {
		return fmt.Errorf("marshaling response trigger: %w", err)
	}
	if err := send(trigger); err != nil {
		return shared.NewError(shared.KindConnection, "bridge.Coordinator.Prime", err)
	}
	c.logger.Info("session primed with scripted opening turn")
	return nil
}
