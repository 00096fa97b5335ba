package twilio

import (
	"fmt"

	bridge "github.com/voicebridge/twilio-realtime"
)

// ConnectStreamTwiML builds the connect-instruction document handed to the
// provider at call placement: it tells the answered call leg to open a
// media stream back to this service's public websocket endpoint.
func ConnectStreamTwiML(publicDomain string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Response>
    <Connect>
        <Stream url="wss://%s%s" />
    </Connect>
</Response>`, publicDomain, bridge.StreamPath)
}
