package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"resume-tailor/internal/common/logger"
)

// lockRetryDelay is how often Grant polls for the file lock held by another
// process.
const lockRetryDelay = 10 * time.Millisecond

// FileStore persists grants as a JSON document on local disk so they survive
// restarts. Writes go through a temp file and rename. Read-modify-write is
// guarded by an flock on path+".lock", so the server and grant-issuer can
// share one file.
type FileStore struct {
	mu     sync.Mutex
	path   string
	lock   *flock.Flock
	now    Clock
	logger logger.Logger
}

type fileDocument struct {
	Grants []AccessGrant `json:"grants"`
}

func NewFileStore(path string, log logger.Logger, clock Clock) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store path is required")
	}
	if clock == nil {
		clock = systemClock
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create grant directory: %w", err)
	}
	return &FileStore{
		path:   path,
		lock:   flock.New(path + ".lock"),
		now:    clock,
		logger: log.WithFields(map[string]interface{}{"store": "file", "path": path}),
	}, nil
}

func (s *FileStore) Grant(ctx context.Context, identity string, d time.Duration) (*AccessGrant, error) {
	now := s.now()
	g, err := newGrant(identity, d, now)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		return nil, fmt.Errorf("%w: lock %s: %v", ErrStoreUnavailable, s.lock.Path(), err)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("grant file unlock failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	doc, err := s.read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	kept := doc.Grants[:0]
	for _, existing := range doc.Grants {
		if existing.ValidAt(now) && existing.Token != g.Token {
			kept = append(kept, existing)
		}
	}
	doc.Grants = append(kept, *g)

	if err := s.write(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	issued(s.logger, "file", g)
	return g, nil
}

func (s *FileStore) IsAuthorized(_ context.Context, token string) bool {
	if token == "" {
		return false
	}

	s.mu.Lock()
	doc, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return denied(s.logger, "file", err)
	}

	now := s.now()
	for _, g := range doc.Grants {
		if g.Token == token {
			return g.ValidAt(now)
		}
	}
	return false
}

// Ping checks that the grant file is readable.
func (s *FileStore) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.read()
	return err
}

func (s *FileStore) read() (*fileDocument, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &fileDocument{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return &fileDocument{}, nil
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return &doc, nil
}

func (s *FileStore) write(doc *fileDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".grants-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
