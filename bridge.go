package bridge

import (
	"context"
	"time"

	"github.com/voicebridge/twilio-realtime/metrics"
	"github.com/voicebridge/twilio-realtime/shared"
	"go.uber.org/zap"
)

// DefaultSettleDelay is the pause between the AI socket opening and the
// priming sequence, so the first command never races the socket becoming
// writable.
const DefaultSettleDelay = 250 * time.Millisecond

var errSocketNotOpen = shared.ErrSocketNotOpen

// AIDialer opens the outbound connection to the speech AI service.
type AIDialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// Bridge owns the two connections of each call. It dials the AI service as
// soon as a telephony connection is accepted, primes the session after the
// settle delay, relays audio both ways in arrival order, and tears both
// sides down together when either closes. Sessions are fully independent;
// one Bridge serves any number of concurrent calls.
type Bridge struct {
	logger      shared.LoggerAdapter
	dialer      AIDialer
	coord       *Coordinator
	mets        *metrics.Metrics
	settleDelay time.Duration
}

func New(logger shared.LoggerAdapter, dialer AIDialer, coord *Coordinator, mets *metrics.Metrics) (*Bridge, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if dialer == nil {
		return nil, shared.ErrNoClient
	}
	if coord == nil {
		return nil, shared.ErrNoConfig
	}
	if mets == nil {
		return nil, shared.ErrNoConfig
	}
	return &Bridge{
		logger:      logger,
		dialer:      dialer,
		coord:       coord,
		mets:        mets,
		settleDelay: DefaultSettleDelay,
	}, nil
}

// SetSettleDelay overrides the handshake settle delay.
func (b *Bridge) SetSettleDelay(d time.Duration) {
	b.settleDelay = d
}

// Handle drives one call from accept to teardown and blocks until both
// connections are closed.
func (b *Bridge) Handle(ctx context.Context, caller Conn) {
	sess := newCallSession(caller)
	b.mets.SessionsStarted.Inc()
	b.mets.ActiveSessions.Inc()
	defer func() {
		sess.close()
		b.mets.ActiveSessions.Dec()
		b.mets.SessionsClosed.Inc()
		b.logger.Info("call session ended", zap.Duration("duration", time.Since(sess.createdAt)))
	}()

	// The AI leg is dialed immediately; it does not wait for the
	// stream-start notification.
	go b.connectAI(ctx, sess)

	b.pumpCaller(sess)
}

func (b *Bridge) connectAI(ctx context.Context, sess *CallSession) {
	sess.setAIState(AIConnecting)
	conn, err := b.dialer.Dial(ctx)
	if err != nil {
		b.logger.Error("dialing speech AI service", err)
		b.mets.AIConnectFailures.Inc()
		sess.close()
		return
	}
	if !sess.attachAI(conn) {
		// Session died while dialing.
		_ = conn.Close()
		return
	}
	b.logger.Info("AI connection open")

	go b.pumpAI(sess, conn)
	go b.prime(sess)
}

func (b *Bridge) prime(sess *CallSession) {
	time.Sleep(b.settleDelay)
	if sess.isClosed() {
		return
	}
	if err := b.coord.Prime(sess.writeAI); err != nil {
		b.logger.Error("priming AI session", err)
		sess.close()
	}
}

// pumpCaller relays the telephony side: stream-start notifications update
// the correlation token, media frames become audio-append commands, and
// everything else is logged without action.
func (b *Bridge) pumpCaller(sess *CallSession) {
	defer sess.close()
	for {
		_, data, err := sess.caller.ReadMessage()
		if err != nil {
			if !sess.isClosed() {
				b.logger.Info("telephony connection closed", zap.Error(err))
			}
			return
		}
		ev, perr := ParseCallEvent(data)
		if perr != nil {
			b.logger.Error("malformed telephony message", perr, zap.ByteString("data", data))
			b.mets.ParseErrors.WithLabelValues("telephony").Inc()
			continue
		}
		switch ev.Variant() {
		case CallVariantStart:
			// Latest start wins; an overwrite is surfaced in the logs but
			// not refused.
			if prev := sess.StreamSID(); prev != "" && prev != ev.Start.StreamSID {
				b.logger.Warn("stream identifier overwritten",
					zap.String("previous", prev),
					zap.String("current", ev.Start.StreamSID),
				)
			}
			sess.setStreamSID(ev.Start.StreamSID)
			b.logger.Info("media stream started", zap.String("streamSid", ev.Start.StreamSID))
		case CallVariantMedia:
			if sess.AIConnState() != AIOpen {
				b.mets.FramesDropped.Inc()
				continue
			}
			cmd, merr := marshalAudioAppend(ev.Media.Payload)
			if merr != nil {
				b.logger.Error("encoding audio append", merr)
				continue
			}
			if werr := sess.writeAI(cmd); werr != nil {
				if werr == errSocketNotOpen {
					b.mets.FramesDropped.Inc()
					continue
				}
				b.logger.Error("writing audio to AI connection", werr)
				return
			}
			b.mets.FramesToAI.Inc()
		case CallVariantOther:
			b.logger.Debug("non-media telephony event", zap.String("event", string(ev.Type)))
		}
	}
}

// pumpAI relays the AI side: audio deltas become media frames tagged with
// the session's current correlation token (possibly still unset — the
// telephony side must tolerate an empty streamSid on early frames), the
// allow-listed kinds are logged verbatim, and the rest is ignored.
func (b *Bridge) pumpAI(sess *CallSession, conn Conn) {
	defer sess.close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !sess.isClosed() {
				b.logger.Info("AI connection closed", zap.Error(err))
			}
			return
		}
		ev, perr := ParseAIEvent(data)
		if perr != nil {
			b.logger.Error("malformed AI message", perr, zap.ByteString("data", data))
			b.mets.ParseErrors.WithLabelValues("ai").Inc()
			continue
		}
		switch ev.Variant() {
		case AIVariantAudioDelta:
			frame, merr := marshalOutboundMedia(sess.StreamSID(), ev.Delta)
			if merr != nil {
				b.logger.Error("encoding media frame", merr)
				continue
			}
			if werr := sess.writeCaller(frame); werr != nil {
				if werr != shared.ErrSessionClosed {
					b.logger.Error("writing audio to telephony connection", werr)
				}
				return
			}
			b.mets.FramesToCaller.Inc()
		case AIVariantSessionUpdated:
			b.logger.Info("session configuration acknowledged")
		case AIVariantLogged:
			b.logger.Info("AI event",
				zap.String("type", string(ev.Type)),
				zap.String("event_id", ev.EventID),
			)
		case AIVariantOther:
			// Deliberately ignored.
		}
	}
}
