// Package config provides configuration helpers for go-juno commands.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/junolabs/go-juno/pkg/realtime"
)

// Defaults for the agent.
const (
	DefaultDashboardPort = "8090"
	DefaultVADThreshold  = 0.5
)

// Env returns an environment variable or the provided default.
func Env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvInt returns an integer environment variable or the provided default.
func EnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// EnvFloat returns a float environment variable or the provided default.
func EnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// Provider returns the realtime provider from JUNO_PROVIDER.
// Valid values: openai, azure, xai, google.
func Provider() realtime.Provider {
	switch os.Getenv("JUNO_PROVIDER") {
	case "azure":
		return realtime.ProviderAzure
	case "xai":
		return realtime.ProviderXAI
	case "google":
		return realtime.ProviderGoogle
	default:
		return realtime.ProviderOpenAI
	}
}

// APIKey returns the credential for the given provider. Google may run
// without one (application default credentials); every other provider
// exits with usage help when the key is missing.
func APIKey(p realtime.Provider) string {
	var envVar string
	switch p {
	case realtime.ProviderGoogle:
		return os.Getenv("GEMINI_API_KEY")
	case realtime.ProviderXAI:
		envVar = "XAI_API_KEY"
	case realtime.ProviderAzure:
		envVar = "AZURE_OPENAI_API_KEY"
	default:
		envVar = "OPENAI_API_KEY"
	}

	key := os.Getenv(envVar)
	if key == "" {
		fmt.Fprintf(os.Stderr, "Error: %s environment variable is required\n", envVar)
		fmt.Fprintf(os.Stderr, "Usage: %s=sk-... go run ./cmd/juno\n", envVar)
		os.Exit(1)
	}
	return key
}

// Settings assembles realtime settings from the environment.
func Settings() realtime.Settings {
	p := Provider()
	return realtime.Settings{
		Provider:          p,
		Model:             os.Getenv("JUNO_MODEL"),
		APIKey:            APIKey(p),
		Endpoint:          os.Getenv("JUNO_ENDPOINT"),
		Voice:             os.Getenv("JUNO_VOICE"),
		Instructions:      Env("JUNO_INSTRUCTIONS", DefaultInstructions),
		VADMode:           Env("JUNO_VAD_MODE", realtime.VADServer),
		VADThreshold:      EnvFloat("JUNO_VAD_THRESHOLD", DefaultVADThreshold),
		PrefixPaddingMs:   EnvInt("JUNO_VAD_PREFIX_MS", 0),
		SilenceDurationMs: EnvInt("JUNO_VAD_SILENCE_MS", 0),
		StartSensitivity:  os.Getenv("JUNO_START_SENSITIVITY"),
		EndSensitivity:    os.Getenv("JUNO_END_SENSITIVITY"),
	}
}

// DefaultInstructions is Juno's baseline persona.
const DefaultInstructions = `You are Juno, a friendly desk robot with a head, arms, and a speaker.
Keep spoken replies short and conversational. Use your tools to move and
gesture when it fits the conversation. If the user talks over you, stop and
listen.`
