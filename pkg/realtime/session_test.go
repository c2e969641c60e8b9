package realtime

import (
	"errors"
	"testing"
)

func TestSchemaSelection(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
		model    string
		want     schema
	}{
		{"openai ga", ProviderOpenAI, "gpt-realtime", schemaGA},
		{"openai ga dated", ProviderOpenAI, "gpt-realtime-2025-08-28", schemaGA},
		{"openai beta", ProviderOpenAI, "gpt-4o-realtime-preview-2024-12-17", schemaBeta},
		{"azure beta", ProviderAzure, "gpt-4o-realtime-preview", schemaBeta},
		{"azure ga", ProviderAzure, "gpt-realtime", schemaGA},
		{"xai", ProviderXAI, "grok-realtime", schemaXAI},
		{"google", ProviderGoogle, "models/gemini-2.0-flash-exp", schemaGoogle},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := schemaFor(Settings{Provider: tc.provider, Model: tc.model})
			if got != tc.want {
				t.Errorf("schemaFor = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestSettingsDefaults(t *testing.T) {
	s := Settings{Provider: ProviderGoogle}.withDefaults()
	if s.Model != DefaultGoogleModel {
		t.Errorf("model = %q", s.Model)
	}
	if s.InputSampleRate != 16000 {
		t.Errorf("input rate = %d", s.InputSampleRate)
	}
	if s.Voice != "Puck" {
		t.Errorf("voice = %q", s.Voice)
	}

	s = Settings{Provider: ProviderOpenAI}.withDefaults()
	if s.Model != DefaultOpenAIModel || s.InputSampleRate != 24000 {
		t.Errorf("openai defaults: %+v", s)
	}
	if s.VADMode != VADServer || s.VADThreshold != 0.5 || s.PrefixPaddingMs != 300 || s.SilenceDurationMs != 500 {
		t.Errorf("vad defaults: %+v", s)
	}
}

func TestBuildGASessionShape(t *testing.T) {
	payload := buildGASession(Settings{
		Provider:         ProviderOpenAI,
		Model:            "gpt-realtime",
		Voice:            "alloy",
		InputSampleRate:  24000,
		OutputSampleRate: 24000,
		VADMode:          VADServer,
		VADThreshold:     0.5,
	})

	if payload["type"] != "session.update" {
		t.Fatalf("type = %v", payload["type"])
	}
	session := payload["session"].(map[string]any)
	if session["type"] != "realtime" {
		t.Errorf("session type = %v", session["type"])
	}
	// GA nests formats under audio.input / audio.output.
	if _, flat := session["input_audio_format"]; flat {
		t.Error("GA payload must not carry beta format fields")
	}
	audio := session["audio"].(map[string]any)
	input := audio["input"].(map[string]any)
	format := input["format"].(map[string]any)
	if format["type"] != "audio/pcm" || format["rate"] != 24000 {
		t.Errorf("input format = %v", format)
	}
}

func TestBuildBetaSessionShape(t *testing.T) {
	payload := buildBetaSession(Settings{
		Voice:             "alloy",
		VADMode:           VADServer,
		VADThreshold:      0.5,
		PrefixPaddingMs:   300,
		SilenceDurationMs: 500,
	})

	session := payload["session"].(map[string]any)
	if session["input_audio_format"] != "pcm16" {
		t.Errorf("input format = %v", session["input_audio_format"])
	}
	td := session["turn_detection"].(map[string]any)
	if td["type"] != VADServer || td["threshold"] != 0.5 {
		t.Errorf("turn detection = %v", td)
	}
	if _, nested := session["audio"]; nested {
		t.Error("beta payload must not carry the GA audio block")
	}
}

func TestBuildSemanticVAD(t *testing.T) {
	td := openAITurnDetection(Settings{VADMode: VADSemantic, Eagerness: "high"})
	if td["type"] != VADSemantic || td["eagerness"] != "high" {
		t.Errorf("turn detection = %v", td)
	}
	if _, ok := td["threshold"]; ok {
		t.Error("semantic vad must not carry a threshold")
	}
}

func TestBuildGoogleSetup(t *testing.T) {
	payload := buildGoogleSetup(Settings{
		Model:            "models/gemini-2.0-flash-exp",
		Voice:            "Puck",
		Instructions:     "be brief",
		StartSensitivity: "START_SENSITIVITY_HIGH",
		Tools: []ToolDef{
			{Name: "get_time", Description: "time", Parameters: map[string]any{"type": "object"}, NonBlocking: true},
			{Name: "look", Description: "look", Parameters: map[string]any{"type": "object"}},
		},
	})

	setup := payload["setup"].(map[string]any)
	if setup["model"] != "models/gemini-2.0-flash-exp" {
		t.Errorf("model = %v", setup["model"])
	}

	ric := setup["realtimeInputConfig"].(map[string]any)
	aad := ric["automaticActivityDetection"].(map[string]any)
	if aad["startOfSpeechSensitivity"] != "START_SENSITIVITY_HIGH" {
		t.Errorf("aad = %v", aad)
	}
	if _, ok := aad["endOfSpeechSensitivity"]; ok {
		t.Error("unset end sensitivity must be omitted")
	}

	toolBlocks := setup["tools"].([]map[string]any)
	decls := toolBlocks[0]["functionDeclarations"].([]map[string]any)
	if len(decls) != 2 {
		t.Fatalf("decls = %d", len(decls))
	}
	if decls[0]["behavior"] != "NON_BLOCKING" {
		t.Errorf("non-blocking tool missing behavior: %v", decls[0])
	}
	if _, ok := decls[1]["behavior"]; ok {
		t.Errorf("blocking tool must not carry behavior: %v", decls[1])
	}
}

func TestSessionReadiness(t *testing.T) {
	sent := 0
	s := NewSession(Settings{Provider: ProviderOpenAI, Model: "gpt-realtime"}, func([]byte) bool {
		sent++
		return true
	})

	var readyErr error
	notified := false
	if !s.Configure(func(err error) {
		notified = true
		readyErr = err
	}) {
		t.Fatal("Configure send failed")
	}
	if sent != 1 {
		t.Fatalf("sent = %d", sent)
	}
	if s.Ready() || notified {
		t.Fatal("session must not be ready before the server ack")
	}

	s.HandleEvent(Event{Kind: KindSessionUpdated})
	if !s.Ready() || !notified || readyErr != nil {
		t.Fatalf("ready=%v notified=%v err=%v", s.Ready(), notified, readyErr)
	}

	// The callback fires once.
	notified = false
	s.HandleEvent(Event{Kind: KindSessionUpdated})
	if notified {
		t.Error("ready callback fired twice")
	}
}

func TestSessionReadinessGoogle(t *testing.T) {
	s := NewSession(Settings{Provider: ProviderGoogle}, func([]byte) bool { return true })
	s.Configure(nil)
	s.HandleEvent(Event{Kind: KindSetupComplete})
	if !s.Ready() {
		t.Fatal("setupComplete must mark the session ready")
	}
}

func TestSessionConfigureFailure(t *testing.T) {
	s := NewSession(Settings{Provider: ProviderOpenAI}, func([]byte) bool { return true })

	var got error
	s.Configure(func(err error) { got = err })

	s.Fail(&APIError{Code: "invalid_session", Message: "bad voice"})
	var apiErr *APIError
	if !errors.As(got, &apiErr) || apiErr.Code != "invalid_session" {
		t.Fatalf("got %v, want invalid_session", got)
	}
	if s.Ready() {
		t.Error("failed session must not be ready")
	}
}

func TestUpdateUnsupportedOnGoogle(t *testing.T) {
	s := NewSession(Settings{Provider: ProviderGoogle}, func([]byte) bool { return true })
	err := s.Update(Settings{Provider: ProviderGoogle, Voice: "Kore"})
	if !errors.Is(err, ErrUpdateUnsupported) {
		t.Fatalf("err = %v, want ErrUpdateUnsupported", err)
	}
}

func TestUpdateWithConcurrentReads(t *testing.T) {
	s := NewSession(Settings{Provider: ProviderOpenAI, Model: "gpt-realtime"}, func([]byte) bool { return true })

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_ = s.Settings()
		}
	}()
	for i := 0; i < 200; i++ {
		if err := s.Update(Settings{Provider: ProviderOpenAI, Model: "gpt-realtime", Voice: "marin"}); err != nil {
			t.Fatal(err)
		}
	}
	<-done

	if got := s.Settings().Voice; got != "marin" {
		t.Errorf("voice = %q, want marin", got)
	}
}

func TestUpdateSendsNewPayload(t *testing.T) {
	var payloads [][]byte
	s := NewSession(Settings{Provider: ProviderOpenAI, Model: "gpt-realtime"}, func(data []byte) bool {
		payloads = append(payloads, data)
		return true
	})
	s.Configure(nil)
	if err := s.Update(Settings{Provider: ProviderOpenAI, Model: "gpt-realtime", Voice: "marin"}); err != nil {
		t.Fatal(err)
	}
	if len(payloads) != 2 {
		t.Fatalf("payloads = %d, want 2", len(payloads))
	}
	if s.Settings().Voice != "marin" {
		t.Errorf("voice = %q", s.Settings().Voice)
	}
}
