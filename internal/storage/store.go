package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/raysh454/vigil/internal/interfaces"
	"github.com/raysh454/vigil/internal/model"
)

var (
	ErrGroupNotFound    = errors.New("group not found")
	ErrDomainNotFound   = errors.New("domain not found")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

const (
	groupsFile       = "groups.json"
	domainsFile      = "domains.json"
	snapshotsDirName = "snapshots"
	htmlFile         = "page.html"
	metadataFile     = "metadata.json"
	assetsDirName    = "assets"
	pingLogFile      = "ping.log"
	dumpLogFile      = "dump.log"
)

// FileStore persists all monitoring state as JSON documents under a single
// data directory:
//
//	dataDir/
//	  groups.json
//	  domains.json
//	  snapshots/
//	    <domainID>/
//	      ping.log                # JSON lines
//	      dump.log                # JSON lines
//	      <timestamp>/
//	        page.html
//	        screenshot.png        # only when captured
//	        metadata.json
//	        assets/               # only when assets were downloaded
//
// Collection documents are rewritten whole on every mutation; a per-file
// mutex serializes read-modify-write cycles and log appends within the
// process. Two processes sharing a data dir still race at the entity level
// (last write wins), which callers accept.
type FileStore struct {
	root   string
	logger interfaces.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ interfaces.Store = (*FileStore)(nil)

// New creates a FileStore rooted at cfg.DataDir, creating the directory
// layout and empty collection documents when missing.
func New(cfg Config, logger interfaces.Logger) (*FileStore, error) {
	if logger == nil {
		return nil, errors.New("storage: nil logger provided")
	}
	if cfg.DataDir == "" {
		return nil, errors.New("storage: data dir is required")
	}

	root, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir %s: %w", cfg.DataDir, err)
	}

	s := &FileStore{
		root:   root,
		logger: logger.With(interfaces.Field{Key: "component", Value: "storage"}),
		locks:  make(map[string]*sync.Mutex),
	}
	if err := s.ensureLayout(); err != nil {
		return nil, err
	}
	return s, nil
}

// ensureLayout creates the base directories and empty collections.
func (s *FileStore) ensureLayout() error {
	if err := os.MkdirAll(filepath.Join(s.root, snapshotsDirName), 0o755); err != nil {
		return fmt.Errorf("create data dir layout: %w", err)
	}
	for _, name := range []string{groupsFile, domainsFile} {
		path := filepath.Join(s.root, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := s.writeJSON(path, []any{}); err != nil {
				return fmt.Errorf("init collection %s: %w", name, err)
			}
		}
	}
	return nil
}

// pathLock returns the mutex guarding a single file.
func (s *FileStore) pathLock(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[path]
	if !ok {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	return l
}

// Root returns the absolute data directory path.
func (s *FileStore) Root() string { return s.root }

// AbsPath resolves a store-relative artifact path to an absolute one.
func (s *FileStore) AbsPath(rel string) string {
	return filepath.Join(s.root, rel)
}

// RelPath converts an absolute path under the store root to its relative form.
func (s *FileStore) RelPath(abs string) (string, error) {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return "", fmt.Errorf("relativize %s: %w", abs, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside the data dir", abs)
	}
	return rel, nil
}

// writeJSON marshals v with indentation and writes it atomically.
func (s *FileStore) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')
	return atomicWriteFile(path, data, 0o644)
}

// readCollection loads a collection document into v. A missing or unreadable
// document yields the empty collection; corruption is logged, not fatal.
func (s *FileStore) readCollection(path string, v any) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read collection, treating as empty",
				interfaces.Field{Key: "path", Value: path},
				interfaces.Field{Key: "error", Value: err.Error()})
		}
		return
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn("failed to parse collection, treating as empty",
			interfaces.Field{Key: "path", Value: path},
			interfaces.Field{Key: "error", Value: err.Error()})
	}
}

// ─── Groups ────────────────────────────────────────────────────────────

// SaveGroup inserts the group, or replaces the stored group with the same ID.
func (s *FileStore) SaveGroup(ctx context.Context, g *model.Group) error {
	if g == nil {
		return errors.New("storage: nil group")
	}
	path := filepath.Join(s.root, groupsFile)
	lock := s.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	var groups []*model.Group
	s.readCollection(path, &groups)
	groups = upsertGroup(groups, g)
	if err := s.writeJSON(path, groups); err != nil {
		return fmt.Errorf("save group %s: %w", g.ID, err)
	}
	return nil
}

func upsertGroup(groups []*model.Group, g *model.Group) []*model.Group {
	for i, existing := range groups {
		if existing.ID == g.ID {
			groups[i] = g
			return groups
		}
	}
	return append(groups, g)
}

// LoadGroups returns all stored groups.
func (s *FileStore) LoadGroups(ctx context.Context) ([]*model.Group, error) {
	var groups []*model.Group
	s.readCollection(filepath.Join(s.root, groupsFile), &groups)
	if groups == nil {
		groups = []*model.Group{}
	}
	return groups, nil
}

// GetGroup returns the group with the given ID, or ErrGroupNotFound.
func (s *FileStore) GetGroup(ctx context.Context, id string) (*model.Group, error) {
	groups, err := s.LoadGroups(ctx)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, ErrGroupNotFound
}

// ─── Domains ───────────────────────────────────────────────────────────

// SaveDomain inserts the domain, or replaces the stored domain with the same ID.
func (s *FileStore) SaveDomain(ctx context.Context, d *model.Domain) error {
	if d == nil {
		return errors.New("storage: nil domain")
	}
	path := filepath.Join(s.root, domainsFile)
	lock := s.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	var domains []*model.Domain
	s.readCollection(path, &domains)
	replaced := false
	for i, existing := range domains {
		if existing.ID == d.ID {
			domains[i] = d
			replaced = true
			break
		}
	}
	if !replaced {
		domains = append(domains, d)
	}
	if err := s.writeJSON(path, domains); err != nil {
		return fmt.Errorf("save domain %s: %w", d.ID, err)
	}
	return nil
}

// LoadDomains returns all stored domains.
func (s *FileStore) LoadDomains(ctx context.Context) ([]*model.Domain, error) {
	var domains []*model.Domain
	s.readCollection(filepath.Join(s.root, domainsFile), &domains)
	if domains == nil {
		domains = []*model.Domain{}
	}
	return domains, nil
}

// GetDomain returns the domain with the given ID, or ErrDomainNotFound.
func (s *FileStore) GetDomain(ctx context.Context, id string) (*model.Domain, error) {
	domains, err := s.LoadDomains(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range domains {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, ErrDomainNotFound
}

// DomainsByGroup returns the domains belonging to the given group in
// stored order.
func (s *FileStore) DomainsByGroup(ctx context.Context, groupID string) ([]*model.Domain, error) {
	domains, err := s.LoadDomains(ctx)
	if err != nil {
		return nil, err
	}
	out := []*model.Domain{}
	for _, d := range domains {
		if d.GroupID == groupID {
			out = append(out, d)
		}
	}
	return out, nil
}

// ─── Environment reset ────────────────────────────────────────────────

// Reset deletes all groups, domains and snapshots, re-initializes the empty
// collections, and reports what was removed.
func (s *FileStore) Reset(ctx context.Context) (*model.ResetStats, error) {
	groups, _ := s.LoadGroups(ctx)
	domains, _ := s.LoadDomains(ctx)
	stats := &model.ResetStats{
		GroupsDeleted:  len(groups),
		DomainsDeleted: len(domains),
	}

	snapRoot := filepath.Join(s.root, snapshotsDirName)
	if domainDirs, err := os.ReadDir(snapRoot); err == nil {
		for _, dd := range domainDirs {
			if !dd.IsDir() {
				continue
			}
			entries, err := os.ReadDir(filepath.Join(snapRoot, dd.Name()))
			if err != nil {
				continue
			}
			for _, e := range entries {
				if e.IsDir() {
					stats.SnapshotsDeleted++
				}
			}
		}
	}

	for _, name := range []string{groupsFile, domainsFile} {
		if err := os.Remove(filepath.Join(s.root, name)); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove %s: %w", name, err)
		}
	}
	if err := os.RemoveAll(snapRoot); err != nil {
		return nil, fmt.Errorf("remove snapshots: %w", err)
	}

	if err := s.ensureLayout(); err != nil {
		return nil, err
	}

	s.logger.Info("environment reset",
		interfaces.Field{Key: "groups_deleted", Value: stats.GroupsDeleted},
		interfaces.Field{Key: "domains_deleted", Value: stats.DomainsDeleted},
		interfaces.Field{Key: "snapshots_deleted", Value: stats.SnapshotsDeleted})
	return stats, nil
}
