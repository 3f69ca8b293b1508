// Package snapshot keeps per-meeting token snapshots on the local filesystem.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/johnquangdev/focus-group-analyzer/internal/domain/entities"
)

var fileNamePattern = regexp.MustCompile(`^tokens_(-?\d+)_(-?\d+)\.json$`)

// MalformedSnapshotError reports a snapshot file that could not be decoded.
// It only ever concerns its own partition.
type MalformedSnapshotError struct {
	Key  entities.MeetingKey
	Path string
	Err  error
}

func (e *MalformedSnapshotError) Error() string {
	return fmt.Sprintf("malformed snapshot %s (%s): %v", e.Path, e.Key, e.Err)
}

func (e *MalformedSnapshotError) Unwrap() []error {
	return []error{entities.ErrMalformedSnapshot, e.Err}
}

// FileName returns the snapshot file name of a meeting
func FileName(key entities.MeetingKey) string {
	return fmt.Sprintf("tokens_%d_%d.json", key.CorpID, key.MeetingID)
}

// ParseFileName recovers the meeting identity from a snapshot file name
func ParseFileName(name string) (entities.MeetingKey, error) {
	m := fileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return entities.MeetingKey{}, fmt.Errorf("%w: %q", entities.ErrInvalidSnapshot, name)
	}
	corpID, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return entities.MeetingKey{}, fmt.Errorf("%w: %q: %v", entities.ErrInvalidSnapshot, name, err)
	}
	meetingID, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return entities.MeetingKey{}, fmt.Errorf("%w: %q: %v", entities.ErrInvalidSnapshot, name, err)
	}
	return entities.MeetingKey{CorpID: corpID, MeetingID: meetingID}, nil
}

// FileStore stores one JSON file per meeting under dir
type FileStore struct {
	dir    string
	logger *zap.Logger

	mu    sync.Mutex
	locks map[entities.MeetingKey]*sync.Mutex
}

// NewFileStore creates dir if needed and returns a store rooted there
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("snapshot dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	return &FileStore{
		dir:    dir,
		logger: logger,
		locks:  make(map[entities.MeetingKey]*sync.Mutex),
	}, nil
}

// Path returns the snapshot path of a meeting
func (s *FileStore) Path(key entities.MeetingKey) string {
	return filepath.Join(s.dir, FileName(key))
}

func (s *FileStore) partitionLock(key entities.MeetingKey) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Save merges delta into the meeting's snapshot: participant token lists
// already on disk are extended, never replaced. The merged map is written to
// a temporary file which then replaces the snapshot, so a failed write leaves
// the previous snapshot intact.
func (s *FileStore) Save(ctx context.Context, key entities.MeetingKey, delta entities.TokenMap) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l := s.partitionLock(key)
	l.Lock()
	defer l.Unlock()

	path := s.Path(key)
	merged, err := s.readFile(key, path)
	if err != nil {
		return err
	}
	merged.Merge(delta)

	data, err := Encode(merged)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", key, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeFileAtomic(s.dir, path, data); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", key, err)
	}

	if s.logger != nil {
		s.logger.Debug("snapshot saved",
			zap.Int64("corp_id", key.CorpID),
			zap.Int64("meeting_id", key.MeetingID),
			zap.Int("tokens_added", delta.Len()),
			zap.Int("tokens_total", merged.Len()),
		)
	}
	return nil
}

// Load reads one meeting's snapshot. A missing file yields an empty map.
func (s *FileStore) Load(ctx context.Context, key entities.MeetingKey) (entities.TokenMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := s.partitionLock(key)
	l.Lock()
	defer l.Unlock()
	return s.readFile(key, s.Path(key))
}

// LoadAll discovers and decodes every snapshot under the store's dir. A file
// that cannot be named or decoded is skipped and its error collected; the
// remaining partitions still load.
func (s *FileStore) LoadAll(ctx context.Context) (map[entities.MeetingKey]entities.TokenMap, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "tokens_*.json"))
	if err != nil {
		return nil, err
	}

	loaded := make(map[entities.MeetingKey]entities.TokenMap, len(paths))
	var errs error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return loaded, multierr.Append(errs, err)
		}

		key, err := ParseFileName(filepath.Base(path))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		tokens, err := s.Load(ctx, key)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("skipping snapshot", zap.String("path", path), zap.Error(err))
			}
			errs = multierr.Append(errs, err)
			continue
		}
		loaded[key] = tokens
	}
	return loaded, errs
}

func (s *FileStore) readFile(key entities.MeetingKey, path string) (entities.TokenMap, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return entities.TokenMap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}

	tokens, err := Decode(data)
	if err != nil {
		return nil, &MalformedSnapshotError{Key: key, Path: path, Err: err}
	}
	return tokens, nil
}

// Encode renders a token map as compact JSON with non-ASCII text left as is
func Encode(tokens entities.TokenMap) ([]byte, error) {
	if tokens == nil {
		tokens = entities.TokenMap{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tokens); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses a snapshot file's content
func Decode(data []byte) (entities.TokenMap, error) {
	var tokens entities.TokenMap
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, err
	}
	if tokens == nil {
		tokens = entities.TokenMap{}
	}
	for q, users := range tokens {
		if users == nil {
			return nil, fmt.Errorf("question %q has no participants", q)
		}
	}
	return tokens, nil
}

func writeFileAtomic(dir, path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(dir, ".tokens-*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
