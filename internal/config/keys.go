package config

import (
	"fmt"
	"os"
	"strings"
)

// APIKeySource represents where an API key comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of an API key.
type KeyStatus struct {
	Name   string       `json:"name"`
	Source APIKeySource `json:"source"`
	IsSet  bool         `json:"is_set"`
	Masked string       `json:"masked,omitempty"` // e.g., "abc...xyz"
}

// CheckAPIKeys returns the status of all configurable API keys.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	statuses := []KeyStatus{
		checkKey("Gemini API Key", cfg.Classify.GeminiKey, "FOLIO_CLASSIFY_GEMINI_KEY"),
	}
	statuses = append(statuses, checkKeyList("Finnhub", cfg.Providers.FinnhubKeys, "FOLIO_PROVIDERS_FINNHUB_KEYS")...)
	statuses = append(statuses, checkKeyList("Tiingo", cfg.Providers.TiingoKeys, "FOLIO_PROVIDERS_TIINGO_KEYS")...)
	return statuses
}

// checkKeyList reports each key of a rotating credential set.
func checkKeyList(provider string, keys []string, envVar string) []KeyStatus {
	if len(keys) == 0 {
		return []KeyStatus{{
			Name:   provider + " API Key",
			Source: KeySourceNone,
		}}
	}

	fromEnv := os.Getenv(envVar) != ""
	statuses := make([]KeyStatus, 0, len(keys))
	for i, key := range keys {
		s := checkKey(fmt.Sprintf("%s API Key #%d", provider, i+1), key, envVar)
		if fromEnv {
			s.Source = KeySourceEnv
		}
		statuses = append(statuses, s)
	}
	return statuses
}

// checkKey checks if a key is set and where it came from.
func checkKey(name, value, envVar string) KeyStatus {
	status := KeyStatus{
		Name:  name,
		IsSet: value != "",
	}

	if value != "" {
		if strings.Contains(os.Getenv(envVar), value) {
			status.Source = KeySourceEnv
		} else {
			status.Source = KeySourceConfig
		}
		status.Masked = maskKey(value)
	} else {
		status.Source = KeySourceNone
	}

	return status
}

// maskKey masks an API key for display, showing only first 3 and last 3 chars.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
