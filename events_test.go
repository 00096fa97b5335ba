package bridge

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallEvent(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
		variant CallVariant
	}{
		{
			name:    "start event",
			data:    `{"event":"start","start":{"streamSid":"MZ1","callSid":"CA1"}}`,
			variant: CallVariantStart,
		},
		{
			name:    "media event",
			data:    `{"event":"media","media":{"payload":"QUJD"}}`,
			variant: CallVariantMedia,
		},
		{
			name:    "connected event",
			data:    `{"event":"connected"}`,
			variant: CallVariantOther,
		},
		{
			name:    "mark event",
			data:    `{"event":"mark"}`,
			variant: CallVariantOther,
		},
		{
			name:    "stop event",
			data:    `{"event":"stop"}`,
			variant: CallVariantOther,
		},
		{
			name:    "unknown event kind",
			data:    `{"event":"dtmf"}`,
			variant: CallVariantOther,
		},
		{
			name:    "missing event kind",
			data:    `{"media":{"payload":"QUJD"}}`,
			wantErr: true,
		},
		{
			name:    "start without body",
			data:    `{"event":"start"}`,
			wantErr: true,
		},
		{
			name:    "media without body",
			data:    `{"event":"media"}`,
			wantErr: true,
		},
		{
			name:    "not JSON",
			data:    `RIFF....WAVE`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseCallEvent([]byte(tt.data))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.variant, ev.Variant())
		})
	}
}

func TestParseCallEventFields(t *testing.T) {
	ev, err := ParseCallEvent([]byte(`{"event":"start","start":{"streamSid":"MZabc","accountSid":"AC1","callSid":"CA9","tracks":["inbound"]}}`))
	require.NoError(t, err)
	require.NotNil(t, ev.Start)
	assert.Equal(t, "MZabc", ev.Start.StreamSID)
	assert.Equal(t, "CA9", ev.Start.CallSID)

	ev, err = ParseCallEvent([]byte(`{"event":"media","media":{"track":"inbound","payload":"QUJD"}}`))
	require.NoError(t, err)
	require.NotNil(t, ev.Media)
	assert.Equal(t, "QUJD", ev.Media.Payload)
}

func TestParseAIEvent(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
		variant AIVariant
	}{
		{
			name:    "audio delta",
			data:    `{"type":"response.audio.delta","delta":"UElORw=="}`,
			variant: AIVariantAudioDelta,
		},
		{
			name:    "session updated milestone",
			data:    `{"type":"session.updated"}`,
			variant: AIVariantSessionUpdated,
		},
		{
			name:    "error is logged",
			data:    `{"type":"error"}`,
			variant: AIVariantLogged,
		},
		{
			name:    "content done is logged",
			data:    `{"type":"response.content.done"}`,
			variant: AIVariantLogged,
		},
		{
			name:    "rate limits update is logged",
			data:    `{"type":"rate_limits.updated"}`,
			variant: AIVariantLogged,
		},
		{
			name:    "response done is logged",
			data:    `{"type":"response.done"}`,
			variant: AIVariantLogged,
		},
		{
			name:    "buffer committed is logged",
			data:    `{"type":"input_audio_buffer.committed"}`,
			variant: AIVariantLogged,
		},
		{
			name:    "speech stopped is logged",
			data:    `{"type":"input_audio_buffer.speech_stopped"}`,
			variant: AIVariantLogged,
		},
		{
			name:    "speech started is logged",
			data:    `{"type":"input_audio_buffer.speech_started"}`,
			variant: AIVariantLogged,
		},
		{
			name:    "session created is logged",
			data:    `{"type":"session.created"}`,
			variant: AIVariantLogged,
		},
		{
			name:    "anything else is ignored",
			data:    `{"type":"response.audio_transcript.delta","delta":"hi"}`,
			variant: AIVariantOther,
		},
		{
			name:    "missing type",
			data:    `{"delta":"UElORw=="}`,
			wantErr: true,
		},
		{
			name:    "not JSON",
			data:    `<html>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseAIEvent([]byte(tt.data))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.variant, ev.Variant())
		})
	}
}

func TestMarshalAudioAppend(t *testing.T) {
	data, err := marshalAudioAppend("QUJD")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, sonic.Unmarshal(data, &decoded))
	assert.Equal(t, "input_audio_buffer.append", decoded["type"])
	assert.Equal(t, "QUJD", decoded["audio"])
}

func TestMarshalOutboundMedia(t *testing.T) {
	data, err := marshalOutboundMedia("MZ1", "QUJD")
	require.NoError(t, err)
	var decoded struct {
		Event     string `json:"event"`
		StreamSID string `json:"streamSid"`
		Media     struct {
			Payload string `json:"payload"`
		} `json:"media"`
	}
	require.NoError(t, sonic.Unmarshal(data, &decoded))
	assert.Equal(t, "media", decoded.Event)
	assert.Equal(t, "MZ1", decoded.StreamSID)
	assert.Equal(t, "QUJD", decoded.Media.Payload)
}

func TestMarshalOutboundMediaUnsetStream(t *testing.T) {
	// Downstream must tolerate an unset correlation field on frames that
	// arrive before the stream-start notification.
	data, err := marshalOutboundMedia("", "QUJD")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, sonic.Unmarshal(data, &decoded))
	assert.Equal(t, "", decoded["streamSid"])
}
