package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/raysh454/vigil/internal/interfaces"
	"github.com/raysh454/vigil/internal/model"
)

// snapshotDirName derives the directory name for a capture timestamp.
// Colons and dots are replaced so the name stays filesystem-safe everywhere.
func snapshotDirName(ts time.Time) string {
	name := ts.UTC().Format(time.RFC3339Nano)
	name = strings.ReplaceAll(name, ":", "-")
	name = strings.ReplaceAll(name, ".", "-")
	return name
}

// CreateSnapshotDir creates the directory for a new snapshot of the domain
// and returns its absolute path.
func (s *FileStore) CreateSnapshotDir(domainID string, ts time.Time) (string, error) {
	dir := filepath.Join(s.root, snapshotsDirName, domainID, snapshotDirName(ts))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	return dir, nil
}

// SaveHTML writes the page HTML into the snapshot directory and returns the
// stored file's path relative to the store root.
func (s *FileStore) SaveHTML(snapshotDir, content string) (string, error) {
	path := filepath.Join(snapshotDir, htmlFile)
	if err := atomicWriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write html: %w", err)
	}
	return s.RelPath(path)
}

// LoadHTML reads back the HTML artifact recorded on the snapshot.
func (s *FileStore) LoadHTML(snap *model.Snapshot) (string, error) {
	if snap == nil || snap.HTMLPath == "" {
		return "", errors.New("snapshot has no html artifact")
	}
	data, err := os.ReadFile(s.AbsPath(snap.HTMLPath))
	if err != nil {
		return "", fmt.Errorf("read html for snapshot %s: %w", snap.ID, err)
	}
	return string(data), nil
}

// SaveSnapshotMetadata persists the snapshot metadata document next to its
// HTML artifact. Failed snapshots carry no HTML artifact and are never
// persisted; they live on only in the dump log.
func (s *FileStore) SaveSnapshotMetadata(snap *model.Snapshot) error {
	if snap == nil {
		return errors.New("storage: nil snapshot")
	}
	if snap.HTMLPath == "" {
		return fmt.Errorf("snapshot %s has no html artifact", snap.ID)
	}
	dir := filepath.Dir(s.AbsPath(snap.HTMLPath))
	if err := s.writeJSON(filepath.Join(dir, metadataFile), snap); err != nil {
		return fmt.Errorf("save snapshot metadata %s: %w", snap.ID, err)
	}
	return nil
}

// loadSnapshotMetadata reads one metadata document. A missing document
// returns (nil, nil): artifact directories without metadata are skipped.
func (s *FileStore) loadSnapshotMetadata(dir string) (*model.Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SnapshotsForDomain returns the domain's snapshots ordered by capture time,
// oldest first. Unreadable metadata documents are skipped with a warning.
func (s *FileStore) SnapshotsForDomain(ctx context.Context, domainID string) ([]*model.Snapshot, error) {
	domainDir := filepath.Join(s.root, snapshotsDirName, domainID)
	entries, err := os.ReadDir(domainDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*model.Snapshot{}, nil
		}
		return nil, fmt.Errorf("read snapshot dir for domain %s: %w", domainID, err)
	}

	snapshots := []*model.Snapshot{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		snap, err := s.loadSnapshotMetadata(filepath.Join(domainDir, e.Name()))
		if err != nil {
			s.logger.Warn("skipping unreadable snapshot metadata",
				interfaces.Field{Key: "dir", Value: e.Name()},
				interfaces.Field{Key: "error", Value: err.Error()})
			continue
		}
		if snap != nil {
			snapshots = append(snapshots, snap)
		}
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp.Before(snapshots[j].Timestamp)
	})
	return snapshots, nil
}

// GetSnapshot scans all stored snapshots for the given ID, or returns
// ErrSnapshotNotFound.
func (s *FileStore) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	snapRoot := filepath.Join(s.root, snapshotsDirName)
	domainDirs, err := os.ReadDir(snapRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("read snapshots root: %w", err)
	}

	for _, dd := range domainDirs {
		if !dd.IsDir() {
			continue
		}
		domainDir := filepath.Join(snapRoot, dd.Name())
		entries, err := os.ReadDir(domainDir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			snap, err := s.loadSnapshotMetadata(filepath.Join(domainDir, e.Name()))
			if err != nil || snap == nil {
				continue
			}
			if snap.ID == id {
				return snap, nil
			}
		}
	}
	return nil, ErrSnapshotNotFound
}

// ValidateSnapshot checks the snapshot's artifacts on disk against its
// metadata. It reports every violation found rather than stopping at the
// first; a recorded-but-missing screenshot file is tolerated.
func (s *FileStore) ValidateSnapshot(snap *model.Snapshot) (bool, []string) {
	errs := []string{}
	if snap == nil {
		return false, []string{"snapshot is nil"}
	}

	if snap.HTMLPath != "" {
		info, err := os.Stat(s.AbsPath(snap.HTMLPath))
		switch {
		case err != nil:
			errs = append(errs, fmt.Sprintf("HTML file does not exist: %s", snap.HTMLPath))
		case !info.Mode().IsRegular():
			errs = append(errs, fmt.Sprintf("HTML path is not a file: %s", snap.HTMLPath))
		}
	} else if snap.Success {
		errs = append(errs, "HTML path is empty but snapshot marked as successful")
	}

	if snap.ScreenshotPath != "" {
		if info, err := os.Stat(s.AbsPath(snap.ScreenshotPath)); err == nil && !info.Mode().IsRegular() {
			errs = append(errs, fmt.Sprintf("Screenshot path is not a file: %s", snap.ScreenshotPath))
		}
	}

	if snap.AssetsDir != "" {
		info, err := os.Stat(s.AbsPath(snap.AssetsDir))
		switch {
		case err != nil:
			errs = append(errs, fmt.Sprintf("Assets directory does not exist: %s", snap.AssetsDir))
		case !info.IsDir():
			errs = append(errs, fmt.Sprintf("Assets path is not a directory: %s", snap.AssetsDir))
		default:
			actual := 0
			if entries, err := os.ReadDir(s.AbsPath(snap.AssetsDir)); err == nil {
				for _, e := range entries {
					if !e.IsDir() {
						actual++
					}
				}
			}
			if actual != snap.AssetCount {
				errs = append(errs, fmt.Sprintf("Asset count mismatch: metadata says %d, but found %d files",
					snap.AssetCount, actual))
			}
		}
	}

	if snap.AssetCount > 0 && snap.AssetsDir == "" {
		errs = append(errs, "Asset count is positive but no assets directory recorded")
	}

	if snap.HTMLPath != "" && snap.ScreenshotPath != "" {
		if filepath.Dir(snap.HTMLPath) != filepath.Dir(snap.ScreenshotPath) {
			errs = append(errs, "HTML and screenshot are not in the same snapshot directory")
		}
	}
	if snap.HTMLPath != "" && snap.AssetsDir != "" {
		if filepath.Dir(snap.AssetsDir) != filepath.Dir(snap.HTMLPath) {
			errs = append(errs, "Assets directory is not in the same snapshot directory")
		}
	}

	return len(errs) == 0, errs
}
