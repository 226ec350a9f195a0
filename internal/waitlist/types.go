// Package waitlist defines core types shared across subsystems.
package waitlist

import (
	"time"
)

// Submission is the canonical shape produced by the field normalizer.
// Optional fields use pointers; nil means the caller did not provide a
// usable value.
type Submission struct {
	Email    string
	Honeypot string

	Qualifier   *string
	UseCase     *string
	SourceURL   *string
	LandingPath *string

	UTMSource   *string
	UTMMedium   *string
	UTMCampaign *string
	UTMTerm     *string
	UTMContent  *string

	ScreenWidth         *int
	ScreenHeight        *int
	ViewportWidth       *int
	ViewportHeight      *int
	Platform            *string
	Timezone            *string
	TimezoneOffset      *int
	ColorScheme         *string
	ReducedMotion       *string
	CookiesEnabled      *bool
	DoNotTrack          *bool
	DeviceMemory        *int
	HardwareConcurrency *int
	MaxTouchPoints      *int

	// Metadata is the caller's free-form metadata object, passed through
	// verbatim into metadata_json.
	Metadata map[string]any
	// AdditionalFields is sanitized before storage.
	AdditionalFields map[string]any
}

// Entry is the row persisted for each unique email.
type Entry struct {
	Email     string
	IPAddress string
	IPHash    string

	Qualifier   *string
	UseCase     *string
	SourceURL   *string
	LandingPath *string

	UTMSource   *string
	UTMMedium   *string
	UTMCampaign *string
	UTMTerm     *string
	UTMContent  *string

	ScreenWidth         *int
	ScreenHeight        *int
	ViewportWidth       *int
	ViewportHeight      *int
	Platform            *string
	Timezone            *string
	TimezoneOffset      *int
	ColorScheme         *string
	ReducedMotion       *string
	CookiesEnabled      *bool
	DoNotTrack          *bool
	DeviceMemory        *int
	HardwareConcurrency *int
	MaxTouchPoints      *int

	Country        string
	City           string
	UserAgent      string
	Referrer       string
	AcceptLanguage string
	Origin         string
	Host           string

	MetadataJSON []byte

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EdgeInfo is the server-derived network snapshot attached by the hosting
// edge. All values come from trusted edge-injected headers, never from the
// request body.
type EdgeInfo struct {
	IP             string `json:"ip,omitempty"`
	Country        string `json:"country,omitempty"`
	City           string `json:"city,omitempty"`
	Continent      string `json:"continent,omitempty"`
	Region         string `json:"region,omitempty"`
	RegionCode     string `json:"region_code,omitempty"`
	PostalCode     string `json:"postal_code,omitempty"`
	Latitude       string `json:"latitude,omitempty"`
	Longitude      string `json:"longitude,omitempty"`
	Timezone       string `json:"timezone,omitempty"`
	ASN            string `json:"asn,omitempty"`
	ASOrganization string `json:"as_organization,omitempty"`
	BotScore       string `json:"bot_score,omitempty"`
	VerifiedBot    string `json:"verified_bot,omitempty"`
	TLSVersion     string `json:"tls_version,omitempty"`
	TLSCipher      string `json:"tls_cipher,omitempty"`
	HTTPProtocol   string `json:"http_protocol,omitempty"`
	Colo           string `json:"colo,omitempty"`
	RayID          string `json:"ray_id,omitempty"`
}
