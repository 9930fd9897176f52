package definition

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lumabook/automation/internal/workflow"
)

// Ext is the file extension the loader picks up.
const Ext = ".workflow"

// Loader reads definition files and upserts them into a workflow store.
type Loader struct {
	store  workflow.WorkflowStore
	logger *slog.Logger
}

// NewLoader creates a loader writing to the given store.
func NewLoader(store workflow.WorkflowStore, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		store:  store,
		logger: logger.With(slog.String("component", "definition-loader")),
	}
}

// LoadFile parses one definition file and upserts its workflows. Upserting
// preserves the stats of definitions that already exist.
func (l *Loader) LoadFile(ctx context.Context, path string) ([]*workflow.WorkflowDefinition, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	defs, err := Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	for _, def := range defs {
		if err := l.store.Upsert(ctx, def); err != nil {
			return nil, fmt.Errorf("upsert workflow %s: %w", def.ID, err)
		}
		l.logger.Info("workflow definition loaded",
			slog.String("workflow_id", def.ID),
			slog.String("file", path),
			slog.Int("steps", len(def.Steps)))
	}
	return defs, nil
}

// LoadDir loads every *.workflow file in the directory, in lexical order so
// reloads are deterministic.
func (l *Loader) LoadDir(ctx context.Context, dir string) ([]*workflow.WorkflowDefinition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Ext) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	var all []*workflow.WorkflowDefinition
	for _, path := range paths {
		defs, err := l.LoadFile(ctx, path)
		if err != nil {
			return nil, err
		}
		all = append(all, defs...)
	}
	return all, nil
}
