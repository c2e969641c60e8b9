package realtime

import (
	"strings"
	"sync"

	"github.com/junolabs/go-juno/internal/log"
)

// Provider identifies the realtime backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderAzure  Provider = "azure"
	ProviderXAI    Provider = "xai"
	ProviderGoogle Provider = "google"
)

// Family returns the wire grammar the provider speaks.
func (p Provider) Family() Family {
	if p == ProviderGoogle {
		return FamilyGoogle
	}
	return FamilyOpenAI
}

// Default models per provider.
const (
	DefaultOpenAIModel = "gpt-realtime"
	DefaultBetaModel   = "gpt-4o-realtime-preview-2024-12-17"
	DefaultXAIModel    = "grok-realtime"
	DefaultGoogleModel = "models/gemini-2.0-flash-exp"
)

// VAD turn-detection modes.
const (
	VADServer   = "server_vad"
	VADSemantic = "semantic_vad"
)

// Settings holds everything needed to configure a session.
type Settings struct {
	Provider Provider
	Model    string
	APIKey   string

	// Endpoint overrides the default wss URL (required for Azure).
	Endpoint string

	Voice        string
	Instructions string

	InputSampleRate  int
	OutputSampleRate int

	// VADMode selects server_vad or semantic_vad for the OpenAI family;
	// Google always uses automatic activity detection.
	VADMode           string
	VADThreshold      float64
	PrefixPaddingMs   int
	SilenceDurationMs int
	Eagerness         string // semantic_vad only: low, auto, high

	// Google activity-detection sensitivities.
	StartSensitivity string // START_SENSITIVITY_LOW / _HIGH
	EndSensitivity   string // END_SENSITIVITY_LOW / _HIGH

	Tools []ToolDef
}

// withDefaults fills unset fields. The VAD numbers mirror the tuned values
// shipped in the robot app; change them only on a product decision.
func (s Settings) withDefaults() Settings {
	if s.Model == "" {
		switch s.Provider {
		case ProviderGoogle:
			s.Model = DefaultGoogleModel
		case ProviderXAI:
			s.Model = DefaultXAIModel
		default:
			s.Model = DefaultOpenAIModel
		}
	}
	if s.Voice == "" {
		if s.Provider == ProviderGoogle {
			s.Voice = "Puck"
		} else {
			s.Voice = "alloy"
		}
	}
	if s.InputSampleRate == 0 {
		if s.Provider == ProviderGoogle {
			s.InputSampleRate = 16000
		} else {
			s.InputSampleRate = 24000
		}
	}
	if s.OutputSampleRate == 0 {
		s.OutputSampleRate = 24000
	}
	if s.VADMode == "" {
		s.VADMode = VADServer
	}
	if s.VADThreshold == 0 {
		s.VADThreshold = 0.5
	}
	if s.PrefixPaddingMs == 0 {
		s.PrefixPaddingMs = 300
	}
	if s.SilenceDurationMs == 0 {
		s.SilenceDurationMs = 500
	}
	return s
}

// schema selects which payload shape a provider/model pair needs. The
// Realtime API has three incompatible OpenAI-family schemas in the wild plus
// the Google setup message.
type schema int

const (
	schemaBeta   schema = iota // legacy gpt-4o-realtime-preview
	schemaGA                   // gpt-realtime (GA field names)
	schemaXAI                  // x.ai compatible subset
	schemaGoogle               // Gemini Live setup
)

func schemaFor(s Settings) schema {
	switch s.Provider {
	case ProviderGoogle:
		return schemaGoogle
	case ProviderXAI:
		return schemaXAI
	}
	if strings.HasPrefix(s.Model, "gpt-realtime") {
		return schemaGA
	}
	return schemaBeta
}

// Session builds and tracks configuration for one connection. Readiness is
// asynchronous everywhere: the OpenAI family acks with session.updated on
// the same connection, Google answers with a separate setupComplete event.
type Session struct {
	settings Settings
	send     func([]byte) bool

	mu      sync.Mutex
	ready   bool
	pending func(error)
}

// NewSession prepares a session over the given send function. Defaults are
// applied to the settings once, here.
func NewSession(settings Settings, send func([]byte) bool) *Session {
	return &Session{settings: settings.withDefaults(), send: send}
}

// Settings returns the effective (defaulted) settings.
func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Configure sends the initial configuration payload. onReady fires once,
// from the event goroutine, when the provider confirms, or with an error if
// the server rejects the session. Callers must not assume synchronous
// readiness.
func (s *Session) Configure(onReady func(error)) bool {
	s.mu.Lock()
	s.pending = onReady
	s.ready = false
	payload := buildSessionPayload(s.settings)
	s.mu.Unlock()

	return s.send(payload)
}

// Update reconfigures a live session in place. Google Live has no
// reconfiguration message; the call is a documented no-op there so callers
// can detect it rather than silently losing settings.
func (s *Session) Update(settings Settings) error {
	s.mu.Lock()
	if s.settings.Provider == ProviderGoogle {
		s.mu.Unlock()
		log.Warn("realtime: session update is unsupported on google live, reconnect to apply settings")
		return ErrUpdateUnsupported
	}
	s.settings = settings.withDefaults()
	payload := buildSessionPayload(s.settings)
	s.mu.Unlock()

	if !s.send(payload) {
		return ErrNotConnected
	}
	return nil
}

// Ready reports whether the provider has confirmed the session.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// HandleEvent consumes session lifecycle events from the dispatcher.
func (s *Session) HandleEvent(ev Event) {
	switch ev.Kind {
	case KindSessionUpdated, KindSetupComplete:
		s.resolve(nil)
	case KindSessionCreated:
		log.Debug("realtime: session created")
	}
}

// Fail rejects a pending readiness callback, typically on a genuine server
// error or transport failure during the handshake.
func (s *Session) Fail(err error) {
	s.resolve(err)
}

func (s *Session) resolve(err error) {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	if err == nil {
		s.ready = true
	}
	s.mu.Unlock()

	if pending != nil {
		pending(err)
	}
}

// buildSessionPayload dispatches to the schema-specific builder. Each
// builder is a pure function from settings to payload, so tests compare
// structures without touching a connection.
func buildSessionPayload(s Settings) []byte {
	switch schemaFor(s) {
	case schemaGoogle:
		return mustJSON(buildGoogleSetup(s))
	case schemaGA:
		return mustJSON(buildGASession(s))
	case schemaXAI:
		return mustJSON(buildXAISession(s))
	default:
		return mustJSON(buildBetaSession(s))
	}
}

// buildBetaSession targets the legacy preview schema: flat session object,
// "pcm16" format strings, turn_detection at the top level.
func buildBetaSession(s Settings) map[string]any {
	session := map[string]any{
		"modalities":          []string{"text", "audio"},
		"instructions":        s.Instructions,
		"voice":               s.Voice,
		"input_audio_format":  "pcm16",
		"output_audio_format": "pcm16",
		"input_audio_transcription": map[string]any{
			"model": "whisper-1",
		},
		"turn_detection": openAITurnDetection(s),
		"tools":          openAIToolDecls(s.Tools),
		"tool_choice":    "auto",
	}
	return map[string]any{"type": "session.update", "session": session}
}

// buildGASession targets the gpt-realtime GA schema: typed session, nested
// audio config, format objects with explicit rates.
func buildGASession(s Settings) map[string]any {
	session := map[string]any{
		"type":         "realtime",
		"model":        s.Model,
		"instructions": s.Instructions,
		"audio": map[string]any{
			"input": map[string]any{
				"format": map[string]any{"type": "audio/pcm", "rate": s.InputSampleRate},
				"transcription": map[string]any{
					"model": "whisper-1",
				},
				"turn_detection": openAITurnDetection(s),
			},
			"output": map[string]any{
				"format": map[string]any{"type": "audio/pcm", "rate": s.OutputSampleRate},
				"voice":  s.Voice,
			},
		},
		"tools":       openAIToolDecls(s.Tools),
		"tool_choice": "auto",
	}
	return map[string]any{"type": "session.update", "session": session}
}

// buildXAISession targets the x.ai realtime endpoint, which accepts the beta
// shape minus the transcription block and semantic VAD.
func buildXAISession(s Settings) map[string]any {
	session := map[string]any{
		"modalities":          []string{"text", "audio"},
		"instructions":        s.Instructions,
		"voice":               s.Voice,
		"input_audio_format":  "pcm16",
		"output_audio_format": "pcm16",
		"turn_detection": map[string]any{
			"type":                VADServer,
			"threshold":           s.VADThreshold,
			"prefix_padding_ms":   s.PrefixPaddingMs,
			"silence_duration_ms": s.SilenceDurationMs,
		},
		"tools":       openAIToolDecls(s.Tools),
		"tool_choice": "auto",
	}
	return map[string]any{"type": "session.update", "session": session}
}

// buildGoogleSetup targets the Gemini Live BidiGenerateContent setup frame.
func buildGoogleSetup(s Settings) map[string]any {
	setup := map[string]any{
		"model": s.Model,
		"generationConfig": map[string]any{
			"responseModalities": []string{"AUDIO"},
			"speechConfig": map[string]any{
				"voiceConfig": map[string]any{
					"prebuiltVoiceConfig": map[string]any{"voiceName": s.Voice},
				},
			},
		},
		"systemInstruction": map[string]any{
			"parts": []map[string]any{{"text": s.Instructions}},
		},
		"inputAudioTranscription":  map[string]any{},
		"outputAudioTranscription": map[string]any{},
	}

	aad := map[string]any{}
	if s.StartSensitivity != "" {
		aad["startOfSpeechSensitivity"] = s.StartSensitivity
	}
	if s.EndSensitivity != "" {
		aad["endOfSpeechSensitivity"] = s.EndSensitivity
	}
	if len(aad) > 0 {
		setup["realtimeInputConfig"] = map[string]any{"automaticActivityDetection": aad}
	}

	if decls := googleToolDecls(s.Tools); len(decls) > 0 {
		setup["tools"] = []map[string]any{{"functionDeclarations": decls}}
	}

	return map[string]any{"setup": setup}
}

func openAITurnDetection(s Settings) map[string]any {
	if s.VADMode == VADSemantic {
		td := map[string]any{"type": VADSemantic}
		if s.Eagerness != "" {
			td["eagerness"] = s.Eagerness
		}
		return td
	}
	return map[string]any{
		"type":                VADServer,
		"threshold":           s.VADThreshold,
		"prefix_padding_ms":   s.PrefixPaddingMs,
		"silence_duration_ms": s.SilenceDurationMs,
	}
}

func openAIToolDecls(tools []ToolDef) []map[string]any {
	decls := make([]map[string]any, len(tools))
	for i, t := range tools {
		decls[i] = map[string]any{
			"type":        "function",
			"name":        t.Name,
			"description": t.Description,
			"parameters":  t.Parameters,
		}
	}
	return decls
}

func googleToolDecls(tools []ToolDef) []map[string]any {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]map[string]any, len(tools))
	for i, t := range tools {
		decl := map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"parameters":  t.Parameters,
		}
		// Non-blocking tools report results without forcing the model to
		// answer again immediately.
		if t.NonBlocking {
			decl["behavior"] = "NON_BLOCKING"
		}
		decls[i] = decl
	}
	return decls
}
