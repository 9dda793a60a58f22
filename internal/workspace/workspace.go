// Package workspace manages workflow documents as JSON files in a
// directory. File names are derived from workflow names; the directory
// is the source of truth, nothing is cached.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lumagraph-labs/lumagraph/internal/graph"
)

const fileExt = ".json"

// Workspace is a directory of workflow files.
type Workspace struct {
	dir    string
	logger *slog.Logger
}

// Info describes one stored workflow without loading its graph.
type Info struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Modified time.Time `json:"modified"`
}

// New opens a workspace, creating the directory if needed.
func New(dir string, logger *slog.Logger) (*Workspace, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace directory: %w", err)
	}
	return &Workspace{dir: dir, logger: logger}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// List returns the stored workflows sorted by name.
func (w *Workspace) List() ([]Info, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("reading workspace directory: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			Name:     strings.TrimSuffix(entry.Name(), fileExt),
			Path:     filepath.Join(w.dir, entry.Name()),
			Modified: fi.ModTime(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Load reads and imports one workflow. The whole document is validated;
// a file with any invalid node or edge loads nothing.
func (w *Workspace) Load(name string) (*graph.Graph, error) {
	path, err := w.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("workflow %q does not exist", name)
		}
		return nil, fmt.Errorf("reading workflow %q: %w", name, err)
	}
	g, err := graph.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("workflow %q: %w", name, err)
	}
	if g.Name() == "" {
		g.SetName(name)
	}
	return g, nil
}

// Save writes the graph under its own name, replacing any previous
// version. The write is atomic: a crash never leaves a torn file.
func (w *Workspace) Save(g *graph.Graph) error {
	path, err := w.path(g.Name())
	if err != nil {
		return err
	}
	data, err := g.Marshal()
	if err != nil {
		return fmt.Errorf("encoding workflow %q: %w", g.Name(), err)
	}

	tmp, err := os.CreateTemp(w.dir, ".workflow-*")
	if err != nil {
		return fmt.Errorf("saving workflow %q: %w", g.Name(), err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("saving workflow %q: %w", g.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("saving workflow %q: %w", g.Name(), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("saving workflow %q: %w", g.Name(), err)
	}
	w.logger.Debug("workflow saved", "name", g.Name(), "path", path)
	return nil
}

// Delete removes a stored workflow.
func (w *Workspace) Delete(name string) error {
	path, err := w.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("workflow %q does not exist", name)
		}
		return fmt.Errorf("deleting workflow %q: %w", name, err)
	}
	return nil
}

// Exists reports whether a workflow is stored.
func (w *Workspace) Exists(name string) bool {
	path, err := w.path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// path maps a workflow name to its file, rejecting names that would
// escape the workspace directory.
func (w *Workspace) path(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("workflow name is required")
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid workflow name %q", name)
	}
	return filepath.Join(w.dir, name+fileExt), nil
}

// Watch reports workflow file changes to fn until the context is done.
// Events are debounced so editors that write in bursts fire once.
func (w *Workspace) Watch(ctx context.Context, fn func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching workspace directory: %w", err)
	}

	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != fileExt {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				w.logger.Debug("workspace changed", "file", event.Name)
				fn()
			})

		case err := <-watcher.Errors:
			w.logger.Error("workspace watcher error", "error", err)
		}
	}
}
