package model

import "time"

// DumpMode selects which artifacts a dump captures for a domain.
type DumpMode string

const (
	// DumpModeHTMLOnly captures the page HTML (and a best-effort screenshot).
	DumpModeHTMLOnly DumpMode = "html_only"

	// DumpModeHTMLAndAssets additionally downloads the page's referenced assets.
	DumpModeHTMLAndAssets DumpMode = "html_and_assets"
)

// Valid reports whether m is a known dump mode.
func (m DumpMode) Valid() bool {
	return m == DumpModeHTMLOnly || m == DumpModeHTMLAndAssets
}

// TriggerKind records what caused a dump.
type TriggerKind string

const (
	// TriggerInitial marks the synchronous dump performed at group creation.
	TriggerInitial TriggerKind = "initial"

	// TriggerAutomatic marks a dump caused by a detected content change.
	TriggerAutomatic TriggerKind = "automatic"

	// TriggerManual marks an operator-forced dump.
	TriggerManual TriggerKind = "manual"
)

// Valid reports whether t is a known trigger kind.
func (t TriggerKind) Valid() bool {
	return t == TriggerInitial || t == TriggerAutomatic || t == TriggerManual
}

// Group is a named collection of monitored domains.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	DomainIDs []string  `json:"domain_ids"`
}

// Domain is a single monitored URL with its capture settings.
type Domain struct {
	ID      string `json:"id"`
	GroupID string `json:"group_id"`
	URL     string `json:"url"`

	// DumpMode selects the artifacts captured on each dump.
	DumpMode DumpMode `json:"dump_mode"`

	// FrequencySeconds is the interval between recurring change checks.
	FrequencySeconds int `json:"frequency_seconds"`

	CreatedAt time.Time `json:"created_at"`

	// LastCheckedAt is nil until the first fetch attempt completes.
	LastCheckedAt *time.Time `json:"last_checked_at"`

	// Active domains are scheduled for recurring checks.
	Active bool `json:"active"`
}

// DomainConfig is the per-domain portion of a group creation request.
type DomainConfig struct {
	URL              string   `json:"url"`
	DumpMode         DumpMode `json:"dump_mode"`
	FrequencySeconds int      `json:"frequency_seconds"`
}
