// Package config assembles the process configuration from the environment,
// with an optional YAML overlay for the AI session settings.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	bridge "github.com/voicebridge/twilio-realtime"
	"github.com/voicebridge/twilio-realtime/shared"
)

// Environment variable keys
const (
	envKeyAccountSID     = "TWILIO_ACCOUNT_SID"
	envKeyAuthToken      = "TWILIO_AUTH_TOKEN"
	envKeyFromNumber     = "TWILIO_FROM_NUMBER"
	envKeyPublicDomain   = "PUBLIC_DOMAIN"
	envKeyOpenAIKey      = "OPENAI_API_KEY"
	envKeyPort           = "PORT"
	envKeyAllowedNumbers = "ALLOWED_NUMBERS"
	envKeySessionFile    = "SESSION_CONFIG"
	envKeyLogFile        = "LOG_FILE"
)

const defaultPort = 6060

// Session defaults
const (
	defaultVoice         = "alloy"
	defaultInstructions  = "You are a helpful and bubbly AI assistant who loves to chat with people on the phone. Keep answers short and conversational."
	defaultAudioFormat   = "g711_ulaw"
	defaultTurnDetection = "server_vad"
	defaultTemperature   = 0.8
)

// DefaultGreeting is the scripted opening line attributed to the user
// role, so the AI speaks first instead of waiting for the recipient.
const DefaultGreeting = "Greet the user with 'Hello there! I am an AI voice assistant powered by the OpenAI Realtime API. How can I help you today?'"

// Config is everything the process needs, validated at load time.
type Config struct {
	AccountSID   string
	AuthToken    string
	FromNumber   string
	PublicDomain string
	OpenAIKey    string

	Port           int
	AllowedNumbers []string
	LogFile        string

	Session  bridge.SessionConfig
	Greeting string
}

// FromEnv loads and validates the configuration. Any missing required
// setting is a configuration error; the caller is expected to exit.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Session: bridge.SessionConfig{
			Voice:             defaultVoice,
			Instructions:      defaultInstructions,
			InputAudioFormat:  defaultAudioFormat,
			OutputAudioFormat: defaultAudioFormat,
			TurnDetection:     defaultTurnDetection,
			Modalities:        []string{"text", "audio"},
			Temperature:       defaultTemperature,
		},
		Greeting: DefaultGreeting,
	}

	var err error
	load := func(dst *string, key string) {
		if err != nil {
			return
		}
		*dst, err = shared.Getenv(shared.GetenvString, key, true, "")
	}
	load(&cfg.AccountSID, envKeyAccountSID)
	load(&cfg.AuthToken, envKeyAuthToken)
	load(&cfg.FromNumber, envKeyFromNumber)
	load(&cfg.PublicDomain, envKeyPublicDomain)
	load(&cfg.OpenAIKey, envKeyOpenAIKey)
	if err != nil {
		return nil, shared.NewError(shared.KindConfiguration, "config.FromEnv", err)
	}
	cfg.PublicDomain = NormalizeDomain(cfg.PublicDomain)

	cfg.Port, err = shared.Getenv(shared.GetenvInt, envKeyPort, false, defaultPort)
	if err != nil {
		return nil, shared.NewError(shared.KindConfiguration, "config.FromEnv", err)
	}
	cfg.AllowedNumbers = shared.MustGetenv(shared.GetenvStrings, envKeyAllowedNumbers, false, nil)
	cfg.LogFile = shared.MustGetenv(shared.GetenvString, envKeyLogFile, false, "")

	sessionFile := shared.MustGetenv(shared.GetenvString, envKeySessionFile, false, "")
	if sessionFile != "" {
		if err := cfg.applySessionFile(sessionFile); err != nil {
			return nil, shared.NewError(shared.KindConfiguration, "config.FromEnv", err)
		}
	}
	return cfg, nil
}

// sessionFile is the YAML overlay shape; absent fields keep the defaults.
type sessionFile struct {
	Voice             *string   `yaml:"voice"`
	Instructions      *string   `yaml:"instructions"`
	InputAudioFormat  *string   `yaml:"input_audio_format"`
	OutputAudioFormat *string   `yaml:"output_audio_format"`
	TurnDetection     *string   `yaml:"turn_detection"`
	Modalities        []string  `yaml:"modalities"`
	Temperature       *float64  `yaml:"temperature"`
	Greeting          *string   `yaml:"greeting"`
}

func (c *Config) applySessionFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading session settings: %w", err)
	}
	var file sessionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing session settings: %w", err)
	}
	if file.Voice != nil {
		c.Session.Voice = *file.Voice
	}
	if file.Instructions != nil {
		c.Session.Instructions = *file.Instructions
	}
	if file.InputAudioFormat != nil {
		c.Session.InputAudioFormat = *file.InputAudioFormat
	}
	if file.OutputAudioFormat != nil {
		c.Session.OutputAudioFormat = *file.OutputAudioFormat
	}
	if file.TurnDetection != nil {
		c.Session.TurnDetection = *file.TurnDetection
	}
	if len(file.Modalities) > 0 {
		c.Session.Modalities = file.Modalities
	}
	if file.Temperature != nil {
		c.Session.Temperature = *file.Temperature
	}
	if file.Greeting != nil {
		c.Greeting = *file.Greeting
	}
	return nil
}

// NormalizeDomain strips any protocol prefix and trailing slashes so the
// value can be embedded in a wss:// URL.
func NormalizeDomain(raw string) string {
	for _, scheme := range []string{"https://", "http://", "wss://", "ws://"} {
		if strings.HasPrefix(raw, scheme) {
			raw = strings.TrimPrefix(raw, scheme)
			break
		}
	}
	return strings.TrimRight(raw, "/")
}
