// # Outbound AI Voice Call Bridge
//
// This repository places automated outbound phone calls through the Twilio REST API and bridges each call's media stream to an OpenAI Realtime session, so the AI converses with the call recipient live. The root package owns the stream bridge: both websocket legs, the event translation between the two vocabularies, and the session handshake that must run before audio can flow.
package bridge
