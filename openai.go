package bridge

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/voicebridge/twilio-realtime/shared"
	"go.uber.org/zap"
)

const (
	// DefaultRealtimeURL is the speech AI service's websocket endpoint.
	DefaultRealtimeURL = "wss://api.openai.com/v1/realtime"

	// RealtimeModel is the fixed model identifier for every session.
	RealtimeModel = "gpt-4o-realtime-preview-2024-12-17"

	betaHeaderKey   = "OpenAI-Beta"
	betaHeaderValue = "realtime=v1"
)

// RealtimeDialer opens authenticated websocket sessions against the
// OpenAI Realtime API.
type RealtimeDialer struct {
	logger shared.LoggerAdapter
	apiKey string
	url    string
	dialer *websocket.Dialer
}

var _ AIDialer = (*RealtimeDialer)(nil)

func NewRealtimeDialer(logger shared.LoggerAdapter, apiKey, baseURL string) (*RealtimeDialer, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if apiKey == "" {
		return nil, shared.ErrNoAPIKey
	}
	if baseURL == "" {
		baseURL = DefaultRealtimeURL
	}
	return &RealtimeDialer{
		logger: logger,
		apiKey: apiKey,
		url:    baseURL,
		dialer: websocket.DefaultDialer,
	}, nil
}

// Dial opens one session. The connection carries the bearer credential and
// the beta-feature header; the model is pinned via the query string.
func (d *RealtimeDialer) Dial(ctx context.Context) (Conn, error) {
	endpoint := fmt.Sprintf("%s?model=%s", d.url, RealtimeModel)
	header := http.Header{}
	header.Set("Authorization", "Bearer "+d.apiKey)
	header.Set(betaHeaderKey, betaHeaderValue)

	conn, resp, err := d.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return nil, shared.NewError(shared.KindConnection, "bridge.RealtimeDialer.Dial", err)
	}
	d.logger.Debug("realtime session dialed", zap.String("model", RealtimeModel))
	return conn, nil
}
