// Package provider defines the market-data provider abstraction: a
// Provider interface, per-kind Fetcher implementations, and a central
// registry that routes data requests to the provider that serves each
// data kind.
package provider

import (
	"context"
	"fmt"
	"time"
)

// ProviderInfo holds metadata about a registered provider.
type ProviderInfo struct {
	Name        string     `json:"name"`        // e.g. "finnhub", "tiingo"
	Description string     `json:"description"` // human-readable description
	Website     string     `json:"website"`
	Kinds       []DataKind `json:"kinds"` // supported data kinds
}

// Provider is the interface all market-data providers implement. Each
// provider registers one Fetcher per data kind it serves.
type Provider interface {
	// Info returns metadata about this provider.
	Info() ProviderInfo

	// Fetcher returns the fetcher for the given kind, or nil if unsupported.
	Fetcher(kind DataKind) Fetcher

	// SupportedKinds returns all data kinds this provider can fetch.
	SupportedKinds() []DataKind
}

// QueryParams is the generic query parameter map passed to fetchers.
// Common keys:
//   - "symbol"     : cleaned ticker symbol (e.g. "AAPL", "BRK-B")
//   - "start_date" : start date (YYYY-MM-DD)
//   - "end_date"   : end date
//
// Each fetcher defines which keys it requires.
type QueryParams map[string]string

// QueryParamKey constants for commonly used query parameters.
const (
	ParamSymbol    = "symbol"
	ParamStartDate = "start_date"
	ParamEndDate   = "end_date"
	ParamProvider  = "provider"
)

// FetchResult wraps a fetcher result with metadata.
type FetchResult struct {
	Provider  string    `json:"provider"`
	Kind      DataKind  `json:"kind"`
	Data      any       `json:"data"`
	FetchedAt time.Time `json:"fetched_at"`
	Cached    bool      `json:"cached"`
}

// Fetcher retrieves one data kind from one provider.
type Fetcher interface {
	// Kind returns the data kind this fetcher handles.
	Kind() DataKind

	// Description returns a human-readable description of the fetcher.
	Description() string

	// RequiredParams returns the parameter keys this fetcher requires.
	RequiredParams() []string

	// Fetch retrieves data for the given query parameters. The dynamic
	// type of FetchResult.Data depends on the kind (see kinds.go).
	Fetch(ctx context.Context, params QueryParams) (*FetchResult, error)
}

// ErrProviderNotFound is returned when a requested provider is not registered.
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return fmt.Sprintf("provider %q not found", e.Name)
}

// ErrKindNotSupported is returned when a provider doesn't serve a data kind.
type ErrKindNotSupported struct {
	Provider string
	Kind     DataKind
}

func (e *ErrKindNotSupported) Error() string {
	return fmt.Sprintf("provider %q does not support %q", e.Provider, e.Kind)
}

// ErrMissingParam is returned when a required query parameter is missing.
type ErrMissingParam struct {
	Param string
}

func (e *ErrMissingParam) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Param)
}

// ValidateParams checks that all required parameters are present in params.
func ValidateParams(params QueryParams, required []string) error {
	for _, key := range required {
		if v, ok := params[key]; !ok || v == "" {
			return &ErrMissingParam{Param: key}
		}
	}
	return nil
}
