package twilio

import (
	"context"
	"fmt"

	"github.com/voicebridge/twilio-realtime/shared"
	"go.uber.org/zap"
)

// Outcome is the typed result of a placement attempt. A policy rejection
// is distinct from an infrastructure failure so the caller can decide what
// each one means for the process.
type Outcome int

const (
	OutcomePlaced Outcome = iota
	OutcomeRejected
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePlaced:
		return "placed"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// PlacementResult reports what happened to one call attempt. CallSID is
// set only for a placed call and is used for logging, nothing else.
type PlacementResult struct {
	Outcome Outcome
	CallSID string
	Reason  string
}

// Placer is the slice of the provider client the initiator uses.
type Placer interface {
	PlaceCall(ctx context.Context, from, to, twiml string) (string, error)
}

// Initiator gates and places one outbound call. The destination must
// already be E.164-formatted.
type Initiator struct {
	logger       shared.LoggerAdapter
	gate         *Gate
	placer       Placer
	from         string
	publicDomain string
}

func NewInitiator(logger shared.LoggerAdapter, gate *Gate, placer Placer, from, publicDomain string) (*Initiator, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if gate == nil || placer == nil {
		return nil, shared.ErrNoClient
	}
	if from == "" || publicDomain == "" {
		return nil, fmt.Errorf("%w: origin number and public domain", shared.ErrMissingSetting)
	}
	return &Initiator{
		logger:       logger,
		gate:         gate,
		placer:       placer,
		from:         from,
		publicDomain: publicDomain,
	}, nil
}

// Place runs the eligibility gate and, on approval, requests call
// placement. No call request is issued for a rejected destination.
func (i *Initiator) Place(ctx context.Context, to string) (PlacementResult, error) {
	allowed, err := i.gate.Allowed(ctx, to)
	if err != nil {
		// Fail closed: a registry failure rejects the attempt.
		return PlacementResult{
			Outcome: OutcomeRejected,
			Reason:  "provider registry query failed",
		}, shared.NewError(shared.KindEligibility, "twilio.Initiator.Place", err)
	}
	if !allowed {
		i.logger.Warn("destination not eligible for outbound call", zap.String("to", to))
		return PlacementResult{
			Outcome: OutcomeRejected,
			Reason:  "destination absent from consent list and provider registries",
		}, nil
	}

	sid, err := i.placer.PlaceCall(ctx, i.from, to, ConnectStreamTwiML(i.publicDomain))
	if err != nil {
		return PlacementResult{Outcome: OutcomeFailed, Reason: "call placement request failed"},
			fmt.Errorf("placing call: %w", err)
	}
	i.logger.Info("outbound call requested",
		zap.String("to", to),
		zap.String("from", i.from),
		zap.String("callSid", sid),
	)
	return PlacementResult{Outcome: OutcomePlaced, CallSID: sid}, nil
}
