package model

import "time"

// Snapshot is the immutable record of one dump attempt. Successful snapshots
// are persisted as metadata documents next to their artifacts; failed ones
// only exist in the returned value and the domain's dump log.
//
// All artifact paths are relative to the store's data root.
type Snapshot struct {
	ID        string      `json:"id"`
	DomainID  string      `json:"domain_id"`
	Timestamp time.Time   `json:"timestamp"`
	Trigger   TriggerKind `json:"trigger"`

	// HTMLPath is empty exactly when the dump failed.
	HTMLPath string `json:"html_path"`

	// ScreenshotPath is set only when a screenshot was captured.
	ScreenshotPath string `json:"screenshot_path,omitempty"`

	// AssetsDir is set only when at least one asset was downloaded.
	AssetsDir string `json:"assets_dir,omitempty"`

	// AssetCount is the number of files under AssetsDir.
	AssetCount int `json:"asset_count"`

	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// PingLogEntry is one line of a domain's reachability log.
type PingLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Reachable bool      `json:"reachable"`

	// StatusCode is nil when no HTTP response was obtained.
	StatusCode *int `json:"status_code"`

	ChangeDetected bool   `json:"change_detected"`
	Message        string `json:"message"`
}

// DumpLogEntry is one line of a domain's dump log. SnapshotID references the
// snapshot produced by the attempt, whether or not it succeeded.
type DumpLogEntry struct {
	Timestamp    time.Time   `json:"timestamp"`
	Trigger      TriggerKind `json:"trigger"`
	SnapshotID   string      `json:"snapshot_id"`
	Success      bool        `json:"success"`
	ErrorMessage string      `json:"error_message,omitempty"`
	Message      string      `json:"message"`
}

// ResetStats reports what an environment reset removed.
type ResetStats struct {
	GroupsDeleted    int `json:"groups_deleted"`
	DomainsDeleted   int `json:"domains_deleted"`
	SnapshotsDeleted int `json:"snapshots_deleted"`
}
