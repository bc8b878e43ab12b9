// Package catalog keeps an in-memory index of model responses read from an
// outputs directory, each validated, projected and analyzed once on load.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ritzau/promptgraph/pkg/analysis"
	"github.com/ritzau/promptgraph/pkg/logging"
	"github.com/ritzau/promptgraph/pkg/model"
	"github.com/ritzau/promptgraph/pkg/projection"
	"github.com/ritzau/promptgraph/pkg/schema"
)

// ErrNotFound is returned by Get-style lookups for an unknown id.
var ErrNotFound = errors.New("document not found")

// Extensions lists the file extensions the catalog loads.
var Extensions = []string{".json", ".txt", ".md"}

// Entry is one loaded model response.
type Entry struct {
	ID       string
	Path     string
	Raw      string
	Result   schema.Result
	Graph    *model.ProjectedGraph // nil when invalid
	Metrics  *analysis.Metrics     // nil when invalid
	LoadedAt time.Time
}

// Valid reports whether the entry's response validated.
func (e *Entry) Valid() bool { return e.Result.Valid() }

// Summary is the listing view of an Entry.
type Summary struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Valid      bool      `json:"valid"`
	ErrorCount int       `json:"error_count"`
	Nodes      int       `json:"nodes"`
	Links      int       `json:"links"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// Summary returns the listing view of e.
func (e *Entry) Summary() Summary {
	s := Summary{
		ID:         e.ID,
		Path:       e.Path,
		Valid:      e.Valid(),
		ErrorCount: len(e.Result.Errors),
		LoadedAt:   e.LoadedAt,
	}
	if e.Graph != nil {
		s.Nodes = len(e.Graph.Nodes)
		s.Links = len(e.Graph.Links)
	}
	return s
}

// Stats counts catalog entries by outcome.
type Stats struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
}

// Catalog is safe for concurrent use.
type Catalog struct {
	root     string
	strict   bool
	listener func(Change)

	mu      sync.RWMutex
	entries map[string]*Entry
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithStrict enables the referential integrity pass on every load.
func WithStrict(strict bool) Option {
	return func(c *Catalog) { c.strict = strict }
}

// WithListener registers fn to be called after every change. fn runs on the
// goroutine that made the change, outside the catalog lock.
func WithListener(fn func(Change)) Option {
	return func(c *Catalog) { c.listener = fn }
}

// New creates an empty catalog whose ids are relative to root.
func New(root string, opts ...Option) *Catalog {
	c := &Catalog{
		root:    filepath.Clean(root),
		entries: make(map[string]*Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root returns the directory ids are relative to.
func (c *Catalog) Root() string { return c.root }

// Eligible reports whether path has a loadable extension and is not hidden.
func Eligible(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(name)))
}

// ID derives the catalog id of path: its location relative to the root,
// with forward slashes. Paths outside the root keep their base name.
func (c *Catalog) ID(path string) string {
	rel, err := filepath.Rel(c.root, filepath.Clean(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

// Load reads path, validates and projects it, and stores the result. A read
// failure is returned and leaves any previous entry for path in place.
func (c *Catalog) Load(path string) (*Entry, error) {
	id := c.ID(path)

	data, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("failed to read %s: %w", path, err)
		logging.Warn("failed to load document", "id", id, "error", err)
		c.notify(Change{Type: ChangeFailed, ID: id, Err: err})
		return nil, err
	}

	entry := c.build(id, path, string(data))

	c.mu.Lock()
	c.entries[id] = entry
	c.mu.Unlock()

	logging.Debug("loaded document", "id", id, "valid", entry.Valid(), "errors", len(entry.Result.Errors))
	c.notify(Change{Type: ChangeLoaded, ID: id, Entry: entry})
	return entry, nil
}

func (c *Catalog) build(id, path, raw string) *Entry {
	var opts []schema.Option
	if c.strict {
		opts = append(opts, schema.WithIntegrity())
	}

	entry := &Entry{
		ID:       id,
		Path:     path,
		Raw:      raw,
		Result:   schema.ValidateString(raw, opts...),
		LoadedAt: time.Now(),
	}
	if entry.Valid() {
		graph := projection.Project(entry.Result.Document)
		metrics := analysis.Analyze(entry.Result.Document)
		entry.Graph = &graph
		entry.Metrics = &metrics
	}
	return entry
}

// LoadDir walks dir and loads every eligible file, skipping hidden files
// and directories. It returns the number of files loaded. Per-file read
// failures are joined into the returned error; the walk continues past them.
func (c *Catalog) LoadDir(dir string) (int, error) {
	var (
		loaded int
		errs   []error
	)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			errs = append(errs, err)
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !Eligible(path) {
			return nil
		}
		if _, err := c.Load(path); err != nil {
			errs = append(errs, err)
			return nil
		}
		loaded++
		return nil
	})
	if err != nil {
		return loaded, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	logging.Info("loaded documents", "dir", dir, "count", loaded, "failed", len(errs))
	return loaded, errors.Join(errs...)
}

// Remove drops the entry for path and reports whether one existed.
func (c *Catalog) Remove(path string) bool {
	id := c.ID(path)

	c.mu.Lock()
	_, ok := c.entries[id]
	delete(c.entries, id)
	c.mu.Unlock()

	if ok {
		logging.Debug("removed document", "id", id)
		c.notify(Change{Type: ChangeRemoved, ID: id})
	}
	return ok
}

// Sync brings the entry for path in line with the file system: it loads
// the file if it exists and removes the entry otherwise.
func (c *Catalog) Sync(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		c.Remove(path)
		return nil
	}
	_, err := c.Load(path)
	return err
}

// Get returns the entry with the given id.
func (c *Catalog) Get(id string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[id]
	return entry, ok
}

// List returns summaries of every entry, sorted by id.
func (c *Catalog) List() []Summary {
	c.mu.RLock()
	out := make([]Summary, 0, len(c.entries))
	for _, entry := range c.entries {
		out = append(out, entry.Summary())
	}
	c.mu.RUnlock()

	slices.SortFunc(out, func(a, b Summary) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Stats counts entries by outcome.
func (c *Catalog) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{Total: len(c.entries)}
	for _, entry := range c.entries {
		if entry.Valid() {
			s.Valid++
		} else {
			s.Invalid++
		}
	}
	return s
}

func (c *Catalog) notify(change Change) {
	if c.listener != nil {
		c.listener(change)
	}
}
