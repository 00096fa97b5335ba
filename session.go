package bridge

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/voicebridge/twilio-realtime/shared"
)

// Conn is the subset of a websocket connection the bridge drives. Both
// legs of a call satisfy it; tests substitute in-memory fakes.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

var _ Conn = (*websocket.Conn)(nil)

// AIState tracks the outbound speech AI connection of one call.
type AIState int

const (
	AINotConnected AIState = iota
	AIConnecting
	AIOpen
	AIClosed
)

func (s AIState) String() string {
	switch s {
	case AINotConnected:
		return "not_connected"
	case AIConnecting:
		return "connecting"
	case AIOpen:
		return "open"
	case AIClosed:
		return "closed"
	default:
		return "invalid"
	}
}

// CallSession is the per-call state: the correlation token assigned by the
// telephony provider, the AI connection state, and both sockets. It is
// owned by exactly one bridge invocation and never shared across calls.
type CallSession struct {
	createdAt time.Time

	mu        sync.Mutex
	streamSID string
	aiState   AIState
	caller    Conn
	ai        Conn
	closed    bool

	// Serializes writes per socket; reads stay single-goroutine.
	callerWriteMu sync.Mutex
	aiWriteMu     sync.Mutex
}

func newCallSession(caller Conn) *CallSession {
	return &CallSession{
		createdAt: time.Now(),
		caller:    caller,
		aiState:   AINotConnected,
	}
}

// StreamSID returns the current correlation token, which is empty until
// the first stream-start notification arrives.
func (s *CallSession) StreamSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamSID
}

// setStreamSID stores the token from a stream-start notification. A later
// start event overwrites an earlier one; the latest write wins.
func (s *CallSession) setStreamSID(sid string) {
	s.mu.Lock()
	s.streamSID = sid
	s.mu.Unlock()
}

// AIConnState returns the current state of the AI-side connection.
func (s *CallSession) AIConnState() AIState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aiState
}

func (s *CallSession) setAIState(state AIState) {
	s.mu.Lock()
	s.aiState = state
	s.mu.Unlock()
}

// attachAI binds the freshly dialed AI connection and marks it open.
// Returns false when the session was already torn down, in which case the
// caller must close the connection itself.
func (s *CallSession) attachAI(conn Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.ai = conn
	s.aiState = AIOpen
	return true
}

// writeAI sends one text message to the AI connection if it is open.
// Frames offered while the connection is in any other state are dropped.
func (s *CallSession) writeAI(data []byte) error {
	s.mu.Lock()
	conn, state := s.ai, s.aiState
	s.mu.Unlock()
	if state != AIOpen || conn == nil {
		return errSocketNotOpen
	}
	s.aiWriteMu.Lock()
	defer s.aiWriteMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// writeCaller sends one text message to the telephony connection.
func (s *CallSession) writeCaller(data []byte) error {
	s.mu.Lock()
	conn, closed := s.caller, s.closed
	s.mu.Unlock()
	if closed || conn == nil {
		return shared.ErrSessionClosed
	}
	s.callerWriteMu.Lock()
	defer s.callerWriteMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// close tears down both sockets together. It is idempotent: a second close
// signal, from whichever side, is a no-op.
func (s *CallSession) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	caller, ai := s.caller, s.ai
	s.aiState = AIClosed
	s.mu.Unlock()

	if ai != nil {
		_ = ai.Close()
	}
	if caller != nil {
		_ = caller.Close()
	}
}

// isClosed reports whether teardown has run.
func (s *CallSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SessionConfig describes the AI conversation. It is built once at startup
// and sent once per AI connection; the bridge never mutates it.
type SessionConfig struct {
	Voice             string   `yaml:"voice"`
	Instructions      string   `yaml:"instructions"`
	InputAudioFormat  string   `yaml:"input_audio_format"`
	OutputAudioFormat string   `yaml:"output_audio_format"`
	TurnDetection     string   `yaml:"turn_detection"`
	Modalities        []string `yaml:"modalities"`
	Temperature       float64  `yaml:"temperature"`
}
