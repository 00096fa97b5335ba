package twilio

import (
	"context"

	"github.com/voicebridge/twilio-realtime/shared"
	"go.uber.org/zap"
)

// Registry is the slice of the provider client the gate consults.
type Registry interface {
	NumberOwned(ctx context.Context, number string) (bool, error)
	CallerIDVerified(ctx context.Context, number string) (bool, error)
}

// Gate decides whether a destination number may receive an outbound call.
// It is a compliance check, not a security boundary: it consults the
// static consent list and the two provider-side registries, short-circuits
// on the first hit, and fails closed on any provider-query failure. A
// verdict is computed fresh per call attempt, never cached.
type Gate struct {
	logger  shared.LoggerAdapter
	reg     Registry
	consent map[string]struct{}
}

func NewGate(logger shared.LoggerAdapter, reg Registry, consentList []string) (*Gate, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if reg == nil {
		return nil, shared.ErrNoClient
	}
	consent := make(map[string]struct{}, len(consentList))
	for _, n := range consentList {
		consent[n] = struct{}{}
	}
	return &Gate{logger: logger, reg: reg, consent: consent}, nil
}

// Allowed returns the verdict for number. A non-nil error means a registry
// query failed; the verdict is then false regardless.
func (g *Gate) Allowed(ctx context.Context, number string) (bool, error) {
	if _, ok := g.consent[number]; ok {
		g.logger.Debug("number on consent list", zap.String("number", number))
		return true, nil
	}
	owned, err := g.reg.NumberOwned(ctx, number)
	if err != nil {
		g.logger.Error("querying account inbound numbers", err, zap.String("number", number))
		return false, err
	}
	if owned {
		return true, nil
	}
	verified, err := g.reg.CallerIDVerified(ctx, number)
	if err != nil {
		g.logger.Error("querying verified caller IDs", err, zap.String("number", number))
		return false, err
	}
	return verified, nil
}
