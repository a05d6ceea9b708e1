package links

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
	"linkctl/pkg/logging"
)

const (
	// EnvFileName is the env-pair projection read by the project's runtime.
	EnvFileName = "links.env"
	// metaFileName keeps the full link records so a restart can restore them.
	metaFileName = "links.yaml"
)

// Store is the link set of one dependent project. The mutex serializes
// every mutation together with its persistence, so one project's link file
// only ever has one writer.
type Store struct {
	mu    sync.Mutex
	dir   string
	links []Link
}

// NewStore returns an empty store persisting into dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir, links: []Link{}}
}

// Load restores a store from the metadata previously written into dir and
// rewrites the env file when it no longer matches the restored links.
// A directory without metadata yields an empty store.
func Load(dir string) (*Store, error) {
	s, err := loadMeta(dir)
	if err != nil {
		return nil, err
	}
	if err := s.repairEnvFile(); err != nil {
		return nil, err
	}
	return s, nil
}

func loadMeta(dir string) (*Store, error) {
	s := NewStore(dir)
	data, err := os.ReadFile(filepath.Join(dir, metaFileName))
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read link metadata in %s: %w", dir, err)
	}
	var loaded []Link
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse link metadata in %s: %w", dir, err)
	}
	for _, l := range loaded {
		if err := validateLink(l, s.links); err != nil {
			return nil, fmt.Errorf("invalid link metadata in %s: %w", dir, err)
		}
		s.links = append(s.links, l)
	}
	logging.Debug("LinkStore", "Restored %d links from %s", len(s.links), dir)
	return s, nil
}

// repairEnvFile makes the env file the projection of the restored links again,
// e.g. after the process died between writing the metadata and the env file.
func (s *Store) repairEnvFile() error {
	want := envPairs(s.links)
	got, err := ReadEnvFile(s.FilePath())
	if err == nil && slices.Equal(got, want) {
		return nil
	}
	if err != nil {
		logging.Warn("LinkStore", "Unreadable env file in %s, rewriting it: %v", s.dir, err)
	} else {
		logging.Warn("LinkStore", "Env file in %s is out of date (%d pairs, want %d), rewriting it", s.dir, len(got), len(want))
	}
	if err := WriteEnvFile(s.FilePath(), want); err != nil {
		return fmt.Errorf("failed to repair env file in %s: %w", s.dir, err)
	}
	return nil
}

// Dir returns the directory the store persists into.
func (s *Store) Dir() string {
	return s.dir
}

// FilePath returns the path of the env-pair file.
func (s *Store) FilePath() string {
	return filepath.Join(s.dir, EnvFileName)
}

// FileExists reports whether the env-pair file is present on disk.
func (s *Store) FileExists() bool {
	_, err := os.Stat(s.FilePath())
	return err == nil
}

// GetAll returns a copy of all links in insertion order.
func (s *Store) GetAll() []Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Link, len(s.links))
	copy(out, s.links)
	return out
}

// GetEnvPairs returns the links rendered as NAME=value.
func (s *Store) GetEnvPairs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return envPairs(s.links)
}

// Get returns the link with the given envName.
func (s *Store) Get(envName string) (Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(envName)
	if i < 0 {
		return Link{}, NewError(CodeNotFound, envName)
	}
	return s.links[i], nil
}

// Add validates link against the current set, appends it and rewrites the files.
func (s *Store) Add(link Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateLink(link, s.links); err != nil {
		return err
	}
	next := make([]Link, len(s.links), len(s.links)+1)
	copy(next, s.links)
	next = append(next, link)
	if err := s.commit(next); err != nil {
		return err
	}
	logging.Info("LinkStore", "Added link %s -> %s (%s)", link.EnvName, link.ProjectID, link.Type)
	return nil
}

// Update sets the envName and projectURL of the link named envName. The
// modified record is validated against every other link, so passing the
// current values is a legal no-op.
func (s *Store) Update(envName, newEnvName, newProjectURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(envName)
	if i < 0 {
		return NewError(CodeNotFound, envName)
	}

	updated := s.links[i]
	updated.EnvName = newEnvName
	updated.ProjectURL = newProjectURL

	others := make([]Link, 0, len(s.links)-1)
	others = append(others, s.links[:i]...)
	others = append(others, s.links[i+1:]...)
	if err := validateLink(updated, others); err != nil {
		return err
	}

	next := make([]Link, len(s.links))
	copy(next, s.links)
	next[i] = updated
	if err := s.commit(next); err != nil {
		return err
	}
	logging.Info("LinkStore", "Updated link %s -> %s", envName, newEnvName)
	return nil
}

// Delete removes the link named envName and rewrites the files.
func (s *Store) Delete(envName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(envName)
	if i < 0 {
		return NewError(CodeNotFound, envName)
	}
	next := make([]Link, 0, len(s.links)-1)
	next = append(next, s.links[:i]...)
	next = append(next, s.links[i+1:]...)
	if err := s.commit(next); err != nil {
		return err
	}
	logging.Info("LinkStore", "Deleted link %s", envName)
	return nil
}

// commit persists next and only then makes it the current set. The metadata
// goes first and is rolled back when the env file cannot be replaced, so a
// failed write leaves memory and both files as they were.
func (s *Store) commit(next []Link) error {
	if err := s.writeMeta(next); err != nil {
		return err
	}
	if err := WriteEnvFile(s.FilePath(), envPairs(next)); err != nil {
		if rbErr := s.writeMeta(s.links); rbErr != nil {
			logging.Error("LinkStore", rbErr, "Failed to roll back link metadata in %s", s.dir)
		}
		return err
	}
	s.links = next
	return nil
}

func (s *Store) writeMeta(next []Link) error {
	path := filepath.Join(s.dir, metaFileName)
	if len(next) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove link metadata %s: %w", path, err)
		}
		return nil
	}
	data, err := yaml.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal link metadata: %w", err)
	}
	return writeFileAtomic(path, data)
}

func (s *Store) indexOf(envName string) int {
	for i, l := range s.links {
		if l.EnvName == envName {
			return i
		}
	}
	return -1
}

func envPairs(links []Link) []string {
	pairs := make([]string, 0, len(links))
	for _, l := range links {
		pairs = append(pairs, l.EnvPair())
	}
	return pairs
}
