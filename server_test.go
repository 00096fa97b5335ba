package bridge

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voicebridge/twilio-realtime/metrics"
	"github.com/voicebridge/twilio-realtime/shared"
)

func newTestServer(t *testing.T, dialer AIDialer) (*Server, *metrics.Metrics) {
	t.Helper()
	reg := prometheus.NewRegistry()
	mets := metrics.New(reg)
	coord, err := NewCoordinator(shared.NewNopLogger(), testSessionConfig(), "Say hello.")
	require.NoError(t, err)
	b, err := New(shared.NewNopLogger(), dialer, coord, mets)
	require.NoError(t, err)
	b.SetSettleDelay(time.Millisecond)
	srv, err := NewServer(shared.NewNopLogger(), b, reg, ":0")
	require.NoError(t, err)
	return srv, mets
}

func TestLivenessProbe(t *testing.T) {
	srv, _ := newTestServer(t, &stubDialer{conn: newFakeConn()})

	rec := httptest.NewRecorder()
	srv.httpSrv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Message)
}

func TestUnknownPathIs404(t *testing.T) {
	srv, _ := newTestServer(t, &stubDialer{conn: newFakeConn()})

	rec := httptest.NewRecorder()
	srv.httpSrv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, mets := newTestServer(t, &stubDialer{conn: newFakeConn()})
	mets.SessionsStarted.Inc()

	rec := httptest.NewRecorder()
	srv.httpSrv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bridge_sessions_started_total 1")
}

// TestStreamEndpointEndToEnd exercises the full path: a real websocket
// upgrade on the stream endpoint, a start and a media event in, and the
// audio-append command observed on the stubbed AI leg.
func TestStreamEndpointEndToEnd(t *testing.T) {
	ai := newFakeConn()
	srv, _ := newTestServer(t, &stubDialer{conn: ai})

	ts := httptest.NewServer(srv.httpSrv.Handler)
	defer ts.Close()

	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) + StreamPath
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"start","start":{"streamSid":"abc123"}}`)))

	// Media is dropped until the AI leg is primed; wait for that first.
	require.Eventually(t, func() bool {
		return len(ai.written()) >= 3
	}, waitFor, tick)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"media","media":{"payload":"QUJD"}}`)))

	require.Eventually(t, func() bool {
		return len(ai.writesOfType("input_audio_buffer.append")) == 1
	}, waitFor, tick)

	var cmd struct {
		Audio string `json:"audio"`
	}
	appends := ai.writesOfType("input_audio_buffer.append")
	require.NoError(t, sonic.Unmarshal(appends[0], &cmd))
	assert.Equal(t, "QUJD", cmd.Audio)
}
