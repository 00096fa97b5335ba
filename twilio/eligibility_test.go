package twilio

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voicebridge/twilio-realtime/shared"
)

type stubRegistry struct {
	owned       bool
	ownedErr    error
	verified    bool
	verifiedErr error

	ownedCalls    int
	verifiedCalls int
}

func (s *stubRegistry) NumberOwned(ctx context.Context, number string) (bool, error) {
	s.ownedCalls++
	return s.owned, s.ownedErr
}

func (s *stubRegistry) CallerIDVerified(ctx context.Context, number string) (bool, error) {
	s.verifiedCalls++
	return s.verified, s.verifiedErr
}

func TestGateConsentListShortCircuits(t *testing.T) {
	// Both registry queries would fail; the consent list must not need them.
	reg := &stubRegistry{
		ownedErr:    errors.New("registry down"),
		verifiedErr: errors.New("registry down"),
	}
	gate, err := NewGate(shared.NewNopLogger(), reg, []string{"+15551234567"})
	require.NoError(t, err)

	allowed, err := gate.Allowed(context.Background(), "+15551234567")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, reg.ownedCalls)
	assert.Zero(t, reg.verifiedCalls)
}

func TestGateChecksInOrder(t *testing.T) {
	tests := []struct {
		name    string
		reg     stubRegistry
		allowed bool
	}{
		{
			name:    "owned inbound number",
			reg:     stubRegistry{owned: true},
			allowed: true,
		},
		{
			name:    "verified caller ID",
			reg:     stubRegistry{verified: true},
			allowed: true,
		},
		{
			name:    "absent everywhere",
			reg:     stubRegistry{},
			allowed: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate, err := NewGate(shared.NewNopLogger(), &tt.reg, nil)
			require.NoError(t, err)
			allowed, err := gate.Allowed(context.Background(), "+15550000000")
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, allowed)
		})
	}
}

func TestGateOwnedShortCircuitsVerified(t *testing.T) {
	reg := &stubRegistry{owned: true, verifiedErr: errors.New("should not be reached")}
	gate, err := NewGate(shared.NewNopLogger(), reg, nil)
	require.NoError(t, err)

	allowed, err := gate.Allowed(context.Background(), "+15550000000")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, reg.verifiedCalls)
}

func TestGateFailsClosedOnRegistryError(t *testing.T) {
	tests := []struct {
		name string
		reg  stubRegistry
	}{
		{
			name: "inbound numbers query fails",
			reg:  stubRegistry{ownedErr: errors.New("timeout")},
		},
		{
			name: "caller ID query fails",
			reg:  stubRegistry{verifiedErr: errors.New("timeout")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate, err := NewGate(shared.NewNopLogger(), &tt.reg, nil)
			require.NoError(t, err)
			allowed, err := gate.Allowed(context.Background(), "+15550000000")
			assert.False(t, allowed)
			assert.Error(t, err)
		})
	}
}

func TestNewGateValidation(t *testing.T) {
	_, err := NewGate(nil, &stubRegistry{}, nil)
	assert.ErrorIs(t, err, shared.ErrNoLogger)

	_, err = NewGate(shared.NewNopLogger(), nil, nil)
	assert.ErrorIs(t, err, shared.ErrNoClient)
}
