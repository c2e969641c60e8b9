// Package realtime manages Juno's persistent speech-to-speech session with a
// realtime model backend (OpenAI, Azure, x.ai, or Google Live) over a single
// WebSocket connection.
//
// The package is organized around a small set of collaborating pieces:
//
//   - Decoder/Encoder translate between provider wire formats and a
//     normalized Event model. Two grammars are supported: the OpenAI-style
//     type-tagged events (also used by Azure and x.ai) and the Google Live
//     serverContent/toolCall structure. Detection is per message.
//   - Conn owns the socket lifecycle and serializes outbound writes behind
//     a four-state connection state machine.
//   - Session builds the provider-specific setup/update payloads and tracks
//     asynchronous session readiness.
//   - Dispatcher consumes normalized events and drives application state:
//     transcript bubbles, audio forwarding, tool execution, and the
//     listening/thinking/speaking turn machine.
//   - Interrupt (a Dispatcher operation) implements barge-in: cancel the
//     in-flight response, truncate already-spoken audio, and reset local
//     playback and turn state.
//
// A Client ties all of these together for one conversation session. Create a
// fresh Client per connection; none of the state survives a reconnect.
//
// Example usage:
//
//	client, err := realtime.NewClient(realtime.Settings{
//	    Provider: realtime.ProviderOpenAI,
//	    APIKey:   os.Getenv("OPENAI_API_KEY"),
//	    Voice:    "marin",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client.Dispatcher().Audio = playback
//	client.Dispatcher().Transcript = dashboard
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	for chunk := range micStream {
//	    client.SendAudio(chunk)
//	}
package realtime
