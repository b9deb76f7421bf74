package interfaces

import (
	"context"
	"time"

	"github.com/raysh454/vigil/internal/model"
)

// Store is the cross-package contract for persisting monitoring state:
// groups, domains, snapshot artifacts, and the per-domain audit logs.
// Implementations must be safe for concurrent use. Artifact paths recorded
// on model.Snapshot are always relative to the store root so the data
// directory stays relocatable.
type Store interface {
	// SaveGroup inserts the group, or replaces the stored group with the same ID.
	SaveGroup(ctx context.Context, g *model.Group) error

	// LoadGroups returns all stored groups.
	LoadGroups(ctx context.Context) ([]*model.Group, error)

	// GetGroup returns the group with the given ID, or ErrGroupNotFound.
	GetGroup(ctx context.Context, id string) (*model.Group, error)

	// SaveDomain inserts the domain, or replaces the stored domain with the same ID.
	SaveDomain(ctx context.Context, d *model.Domain) error

	// LoadDomains returns all stored domains.
	LoadDomains(ctx context.Context) ([]*model.Domain, error)

	// GetDomain returns the domain with the given ID, or ErrDomainNotFound.
	GetDomain(ctx context.Context, id string) (*model.Domain, error)

	// DomainsByGroup returns the domains belonging to the given group.
	DomainsByGroup(ctx context.Context, groupID string) ([]*model.Domain, error)

	// CreateSnapshotDir creates the directory for a new snapshot of the domain
	// and returns its absolute path.
	CreateSnapshotDir(domainID string, ts time.Time) (string, error)

	// SaveHTML writes the page HTML into the snapshot directory and returns
	// the stored file's path relative to the store root.
	SaveHTML(snapshotDir, content string) (string, error)

	// LoadHTML reads back the HTML artifact recorded on the snapshot.
	LoadHTML(s *model.Snapshot) (string, error)

	// SaveSnapshotMetadata persists the snapshot metadata document next to its
	// HTML artifact. Callers only invoke this for successful snapshots; failed
	// dumps are represented in the dump log alone.
	SaveSnapshotMetadata(s *model.Snapshot) error

	// SnapshotsForDomain returns the domain's snapshots ordered by capture
	// time, oldest first.
	SnapshotsForDomain(ctx context.Context, domainID string) ([]*model.Snapshot, error)

	// GetSnapshot scans all stored snapshots for the given ID, or returns
	// ErrSnapshotNotFound.
	GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error)

	// ValidateSnapshot checks the snapshot's artifacts on disk against its
	// metadata and returns every violation found.
	ValidateSnapshot(s *model.Snapshot) (bool, []string)

	// AppendPingLog appends one entry to the domain's reachability log.
	AppendPingLog(domainID string, e *model.PingLogEntry) error

	// ReadPingLog returns the domain's reachability log in append order.
	ReadPingLog(domainID string) ([]*model.PingLogEntry, error)

	// AppendDumpLog appends one entry to the domain's dump log.
	AppendDumpLog(domainID string, e *model.DumpLogEntry) error

	// ReadDumpLog returns the domain's dump log in append order.
	ReadDumpLog(domainID string) ([]*model.DumpLogEntry, error)

	// Reset deletes all groups, domains and snapshots, re-initializes the
	// empty collections, and reports what was removed.
	Reset(ctx context.Context) (*model.ResetStats, error)

	// Root returns the absolute data directory path.
	Root() string

	// AbsPath resolves a store-relative artifact path to an absolute one.
	AbsPath(rel string) string

	// RelPath converts an absolute path under the store root to its
	// store-relative form.
	RelPath(abs string) (string, error)
}
