package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/raysh454/vigil/internal/interfaces"
	"github.com/raysh454/vigil/internal/model"
)

// domainDir is where a domain's logs and snapshot directories live.
func (s *FileStore) domainDir(domainID string) string {
	return filepath.Join(s.root, snapshotsDirName, domainID)
}

// appendLogLine serializes v and appends it as one line to path, holding
// the file's lock so concurrent appenders never interleave.
func (s *FileStore) appendLogLine(path string, v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}

	lock := s.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log %s: %w", filepath.Base(path), err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("append log %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// readLogLines scans a JSON-lines file, handing each line to parse.
// Malformed lines are logged and skipped so one bad write never hides
// the rest of the history.
func (s *FileStore) readLogLines(path string, parse func(data []byte)) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open log %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		parse(line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan log %s: %w", filepath.Base(path), err)
	}
	return nil
}

// AppendPingLog appends one entry to the domain's reachability log.
func (s *FileStore) AppendPingLog(domainID string, e *model.PingLogEntry) error {
	if e == nil {
		return errors.New("storage: nil ping log entry")
	}
	return s.appendLogLine(filepath.Join(s.domainDir(domainID), pingLogFile), e)
}

// ReadPingLog returns the domain's reachability log in append order.
func (s *FileStore) ReadPingLog(domainID string) ([]*model.PingLogEntry, error) {
	path := filepath.Join(s.domainDir(domainID), pingLogFile)
	entries := []*model.PingLogEntry{}
	err := s.readLogLines(path, func(data []byte) {
		var e model.PingLogEntry
		if err := json.Unmarshal(data, &e); err != nil {
			s.logger.Warn("skipping malformed ping log line",
				interfaces.Field{Key: "domain_id", Value: domainID},
				interfaces.Field{Key: "error", Value: err.Error()})
			return
		}
		entries = append(entries, &e)
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// AppendDumpLog appends one entry to the domain's dump log.
func (s *FileStore) AppendDumpLog(domainID string, e *model.DumpLogEntry) error {
	if e == nil {
		return errors.New("storage: nil dump log entry")
	}
	return s.appendLogLine(filepath.Join(s.domainDir(domainID), dumpLogFile), e)
}

// ReadDumpLog returns the domain's dump log in append order.
func (s *FileStore) ReadDumpLog(domainID string) ([]*model.DumpLogEntry, error) {
	path := filepath.Join(s.domainDir(domainID), dumpLogFile)
	entries := []*model.DumpLogEntry{}
	err := s.readLogLines(path, func(data []byte) {
		var e model.DumpLogEntry
		if err := json.Unmarshal(data, &e); err != nil {
			s.logger.Warn("skipping malformed dump log line",
				interfaces.Field{Key: "domain_id", Value: domainID},
				interfaces.Field{Key: "error", Value: err.Error()})
			return
		}
		entries = append(entries, &e)
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
