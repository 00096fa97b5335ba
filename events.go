package bridge

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// CallEventType is the event vocabulary of the telephony media stream.
type CallEventType string

const (
	CallEventConnected CallEventType = "connected"
	CallEventStart     CallEventType = "start"
	CallEventMedia     CallEventType = "media"
	CallEventMark      CallEventType = "mark"
	CallEventStop      CallEventType = "stop"
)

// CallVariant is the closed set of behaviors the bridge distinguishes on
// the telephony side. Everything that is not a start or a media frame is
// handled by the Other arm (logged, no action).
type CallVariant int

const (
	CallVariantStart CallVariant = iota
	CallVariantMedia
	CallVariantOther
)

// CallStart carries the stream-start notification parameters.
type CallStart struct {
	StreamSID  string   `json:"streamSid"`
	AccountSID string   `json:"accountSid"`
	CallSID    string   `json:"callSid"`
	Tracks     []string `json:"tracks"`
}

// CallMedia carries one inbound audio frame. Payload stays base64-encoded
// end to end; the bridge never decodes it.
type CallMedia struct {
	Track     string `json:"track"`
	Chunk     string `json:"chunk"`
	Timestamp string `json:"timestamp"`
	Payload   string `json:"payload"`
}

// CallEvent is one decoded message from the telephony connection.
type CallEvent struct {
	Type  CallEventType `json:"event"`
	Start *CallStart    `json:"start,omitempty"`
	Media *CallMedia    `json:"media,omitempty"`
}

// Variant maps the wire event kind onto the closed handling set.
func (e *CallEvent) Variant() CallVariant {
	switch e.Type {
	case CallEventStart:
		return CallVariantStart
	case CallEventMedia:
		return CallVariantMedia
	case CallEventConnected, CallEventMark, CallEventStop:
		return CallVariantOther
	default:
		return CallVariantOther
	}
}

// ParseCallEvent decodes one telephony message. A start or media event
// without its parameter body is malformed.
func ParseCallEvent(data []byte) (*CallEvent, error) {
	e := new(CallEvent)
	if err := sonic.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("decoding call event: %w", err)
	}
	if e.Type == "" {
		return nil, errors.New("call event missing event kind")
	}
	if e.Type == CallEventStart && e.Start == nil {
		return nil, errors.New("start event missing start body")
	}
	if e.Type == CallEventMedia && e.Media == nil {
		return nil, errors.New("media event missing media body")
	}
	return e, nil
}

// AIEventType is the event vocabulary of the speech AI service.
type AIEventType string

const (
	AIEventError              AIEventType = "error"
	AIEventSessionCreated     AIEventType = "session.created"
	AIEventSessionUpdated     AIEventType = "session.updated"
	AIEventResponseAudioDelta AIEventType = "response.audio.delta"
	AIEventContentDone        AIEventType = "response.content.done"
	AIEventRateLimitsUpdated  AIEventType = "rate_limits.updated"
	AIEventResponseDone       AIEventType = "response.done"
	AIEventBufferCommitted    AIEventType = "input_audio_buffer.committed"
	AIEventSpeechStopped      AIEventType = "input_audio_buffer.speech_stopped"
	AIEventSpeechStarted      AIEventType = "input_audio_buffer.speech_started"
)

// loggedAIEvents is the fixed allow-list of AI event kinds surfaced
// verbatim in the logs for observability.
var loggedAIEvents = map[AIEventType]struct{}{
	AIEventError:             {},
	AIEventContentDone:       {},
	AIEventRateLimitsUpdated: {},
	AIEventResponseDone:      {},
	AIEventBufferCommitted:   {},
	AIEventSpeechStopped:     {},
	AIEventSpeechStarted:     {},
	AIEventSessionCreated:    {},
}

// AIVariant is the closed set of behaviors on the AI side. Ignore-and-log
// is a named arm; everything outside the allow-list is AIVariantOther and
// produces no output at all.
type AIVariant int

const (
	AIVariantAudioDelta AIVariant = iota
	AIVariantSessionUpdated
	AIVariantLogged
	AIVariantOther
)

// AIEvent is one decoded message from the speech AI connection. Only the
// fields the bridge acts on are mapped; the rest of the payload is
// irrelevant to relaying.
type AIEvent struct {
	Type    AIEventType `json:"type"`
	EventID string      `json:"event_id,omitempty"`
	Delta   string      `json:"delta,omitempty"`
}

func (e *AIEvent) Variant() AIVariant {
	switch {
	case e.Type == AIEventResponseAudioDelta:
		return AIVariantAudioDelta
	case e.Type == AIEventSessionUpdated:
		return AIVariantSessionUpdated
	default:
		if _, ok := loggedAIEvents[e.Type]; ok {
			return AIVariantLogged
		}
		return AIVariantOther
	}
}

// ParseAIEvent decodes one AI service message.
func ParseAIEvent(data []byte) (*AIEvent, error) {
	e := new(AIEvent)
	if err := sonic.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("decoding AI event: %w", err)
	}
	if e.Type == "" {
		return nil, errors.New("AI event missing type")
	}
	return e, nil
}

// Client command shapes sent to the AI connection.

type sessionUpdateCommand struct {
	Type    string         `json:"type"`
	Session sessionPayload `json:"session"`
}

type sessionPayload struct {
	TurnDetection     turnDetectionPayload `json:"turn_detection"`
	InputAudioFormat  string               `json:"input_audio_format"`
	OutputAudioFormat string               `json:"output_audio_format"`
	Voice             string               `json:"voice"`
	Instructions      string               `json:"instructions"`
	Modalities        []string             `json:"modalities"`
	Temperature       float64              `json:"temperature"`
}

type turnDetectionPayload struct {
	Type string `json:"type"`
}

type conversationItemCommand struct {
	Type string           `json:"type"`
	Item conversationItem `json:"item"`
}

type conversationItem struct {
	Type    string             `json:"type"`
	Role    string             `json:"role"`
	Content []conversationPart `json:"content"`
}

type conversationPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responseCreateCommand struct {
	Type string `json:"type"`
}

type audioAppendCommand struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

func marshalAudioAppend(payload string) ([]byte, error) {
	return sonic.Marshal(audioAppendCommand{
		Type:  "input_audio_buffer.append",
		Audio: payload,
	})
}

// Outbound frame shape sent back to the telephony connection.

type outboundMedia struct {
	Event     string       `json:"event"`
	StreamSID string       `json:"streamSid"`
	Media     mediaPayload `json:"media"`
}

type mediaPayload struct {
	Payload string `json:"payload"`
}

func marshalOutboundMedia(streamSID, payload string) ([]byte, error) {
	return sonic.Marshal(outboundMedia{
		Event:     "media",
		StreamSID: streamSID,
		Media:     mediaPayload{Payload: payload},
	})
}
