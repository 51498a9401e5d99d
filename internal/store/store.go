// Package store implements the file-backed credential store: a process-wide
// mutation serializer over an OS-level advisory file lock, an in-memory
// cache kept fresh by a filesystem watch (polling fallback), and the
// relational cascades between entries and groups.
package store

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"authgate/internal/apperr"
	"authgate/internal/model"
)

const pollInterval = 1 * time.Second

// Store is the single source of truth for entries and groups, backed by a
// JSON document on disk. All mutations are linearized by mu and, across
// processes, by an OS advisory lock on the same path.
type Store struct {
	path string

	mu         sync.Mutex // serializes the whole lock->read->mutate->write sequence
	cacheMu    sync.RWMutex
	cache      model.DataFile
	cacheMtime time.Time

	fileLock *flock.Flock

	watcher   *fsnotify.Watcher
	watchDone chan struct{}
}

// Open creates the data file and its parent directory if absent, loads the
// current document into cache, and starts the background synchronization
// task. Callers should call Close when done.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperr.DataWrite(err)
	}
	s := &Store{
		path:     path,
		fileLock: flock.New(path),
	}
	if err := s.reload(); err != nil {
		return nil, err
	}
	s.startSync()
	return s, nil
}

// Close stops the background synchronization task.
func (s *Store) Close() {
	if s.watchDone != nil {
		close(s.watchDone)
		s.watchDone = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
	}
}

func (s *Store) snapshot() model.DataFile {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return cloneDataFile(s.cache)
}

func cloneDataFile(d model.DataFile) model.DataFile {
	entries := make([]model.AuthEntry, len(d.Entries))
	copy(entries, d.Entries)
	for i := range entries {
		gids := make([]uuid.UUID, len(entries[i].GroupIDs))
		copy(gids, entries[i].GroupIDs)
		entries[i].GroupIDs = gids
	}
	groups := make([]model.Group, len(d.Groups))
	copy(groups, d.Groups)
	return model.DataFile{Entries: entries, Groups: groups}
}

// ListEntries returns a snapshot copy of all entries.
func (s *Store) ListEntries() []model.AuthEntry {
	return s.snapshot().Entries
}

// ListGroups returns a snapshot copy of all groups.
func (s *Store) ListGroups() []model.Group {
	return s.snapshot().Groups
}

// GetEntry returns a copy of the entry with the given id.
func (s *Store) GetEntry(id uuid.UUID) (model.AuthEntry, error) {
	snap := s.snapshot()
	for _, e := range snap.Entries {
		if e.ID == id {
			return e, nil
		}
	}
	return model.AuthEntry{}, apperr.EntryNotFound(id.String())
}

// GetGroup returns a copy of the group with the given id.
func (s *Store) GetGroup(id uuid.UUID) (model.Group, error) {
	snap := s.snapshot()
	for _, g := range snap.Groups {
		if g.ID == id {
			return g, nil
		}
	}
	return model.Group{}, apperr.GroupNotFound(id.String())
}

// EntriesByGroupID returns all entries that belong to the given group.
func (s *Store) EntriesByGroupID(gid uuid.UUID) []model.AuthEntry {
	snap := s.snapshot()
	out := make([]model.AuthEntry, 0)
	for _, e := range snap.Entries {
		if e.HasGroup(gid) {
			out = append(out, e)
		}
	}
	return out
}

// FindGroupByName returns the group with the given name, if any.
func (s *Store) FindGroupByName(name string) (model.Group, bool) {
	snap := s.snapshot()
	for _, g := range snap.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return model.Group{}, false
}

// mutate runs fn under the exclusive mutation protocol: serialize in-process
// callers, take the OS exclusive lock, read-modify-write the document, fsync,
// then refresh the cache. fn observes and mutates the freshly-read document.
func (s *Store) mutate(fn func(*model.DataFile) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fileLock.Lock(); err != nil {
		return apperr.DataWrite(err)
	}
	defer s.fileLock.Unlock()

	doc, err := readDocument(s.path)
	if err != nil {
		return err
	}

	if err := fn(&doc); err != nil {
		return err
	}

	if err := writeDocument(s.path, doc); err != nil {
		return err
	}

	mtime, err := statMtime(s.path)
	if err != nil {
		return apperr.DataWrite(err)
	}

	s.cacheMu.Lock()
	s.cache = doc
	s.cacheMtime = mtime
	s.cacheMu.Unlock()

	return nil
}

// reload re-reads the document under a shared lock if the on-disk mtime has
// moved past the cached version, leaving the cache untouched on any failure.
func (s *Store) reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fileLock.RLock(); err != nil {
		slog.Warn("store: failed to acquire shared lock for reload", "error", err)
		return err
	}
	defer s.fileLock.Unlock()

	mtime, err := statMtime(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			mtime = time.Time{}
		} else {
			slog.Warn("store: failed to stat data file", "error", err)
			return nil
		}
	}

	s.cacheMu.RLock()
	current := s.cacheMtime
	s.cacheMu.RUnlock()
	if mtime.Equal(current) {
		return nil
	}

	doc, err := readDocument(s.path)
	if err != nil {
		slog.Warn("store: failed to reload data file, keeping cache", "error", err)
		return nil
	}

	s.cacheMu.Lock()
	s.cache = doc
	s.cacheMtime = mtime
	s.cacheMu.Unlock()
	return nil
}

func readDocument(path string) (model.DataFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewDataFile(), nil
		}
		return model.DataFile{}, apperr.DataRead(err)
	}
	if len(data) == 0 {
		return model.NewDataFile(), nil
	}
	var doc model.DataFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.DataFile{}, apperr.DataParse(err)
	}
	if doc.Entries == nil {
		doc.Entries = []model.AuthEntry{}
	}
	if doc.Groups == nil {
		doc.Groups = []model.Group{}
	}
	return doc, nil
}

func writeDocument(path string, doc model.DataFile) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperr.DataSerialize(err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return apperr.DataWrite(err)
	}
	defer f.Close()
	if err := f.Truncate(0); err != nil {
		return apperr.DataWrite(err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return apperr.DataWrite(err)
	}
	if _, err := f.Write(data); err != nil {
		return apperr.DataWrite(err)
	}
	if err := f.Sync(); err != nil {
		return apperr.DataWrite(err)
	}
	return nil
}

func statMtime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// startSync spawns the background reload task: an fsnotify watch on the
// data file when one can be established, otherwise a fixed-interval poll.
func (s *Store) startSync() {
	s.watchDone = make(chan struct{})

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("store: fsnotify unavailable, falling back to polling", "error", err)
		go s.pollLoop()
		return
	}
	if err := watcher.Add(s.path); err != nil {
		watcher.Close()
		slog.Warn("store: failed to watch data file, falling back to polling", "error", err)
		go s.pollLoop()
		return
	}
	s.watcher = watcher
	go s.watchLoop()
}

func (s *Store) watchLoop() {
	for {
		select {
		case <-s.watchDone:
			return
		case _, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if err := s.reload(); err != nil {
				slog.Warn("store: reload after watch event failed", "error", err)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("store: watcher error", "error", err)
		}
	}
}

func (s *Store) pollLoop() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.watchDone:
			return
		case <-ticker.C:
			if err := s.reload(); err != nil {
				slog.Warn("store: poll reload failed", "error", err)
			}
		}
	}
}
