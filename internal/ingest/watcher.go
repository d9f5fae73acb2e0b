package ingest

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/memcore/memcore/internal/content"
	"github.com/memcore/memcore/internal/memory"
)

// Watcher watches a directory for markdown files and runs each one through
// FileToInputs and Pipeline.Create as it appears or changes. It drains any
// files already present before watching for new ones, so a directory
// populated before the watcher starts isn't silently skipped.
type Watcher struct {
	dir      string
	pipeline *memory.Pipeline
	tags     []string
	watcher  *fsnotify.Watcher
	done     chan struct{}
	seen     map[string]string // path -> content hash last processed, avoids reprocessing on unrelated fs events
}

// NewWatcher returns a Watcher over dir, whose markdown files will be
// ingested as memories tagged with extraTags in addition to "ingest".
func NewWatcher(dir string, pipeline *memory.Pipeline, extraTags ...string) *Watcher {
	return &Watcher{
		dir:      dir,
		pipeline: pipeline,
		tags:     extraTags,
		done:     make(chan struct{}),
		seen:     make(map[string]string),
	}
}

// Start drains any markdown files already in the directory, then begins
// watching for new or modified ones. Call Stop to shut down.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}

	w.drainExisting(ctx)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return err
	}
	w.watcher = fsw

	go w.loop(ctx)
	log.Printf("ingest: watching %s for markdown files", w.dir)
	return nil
}

// Stop shuts down the watcher and waits for its loop goroutine to exit.
func (w *Watcher) Stop() {
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
	<-w.done
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case evt, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if (evt.Op&fsnotify.Create != 0 || evt.Op&fsnotify.Write != 0) && isMarkdown(evt.Name) {
				w.processFile(ctx, evt.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("ingest: watcher error: %v", err)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) drainExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() && isMarkdown(entry.Name()) {
			w.processFile(ctx, filepath.Join(w.dir, entry.Name()))
		}
	}
}

func (w *Watcher) processFile(ctx context.Context, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Printf("ingest: read %s: %v", path, err)
		return
	}
	hash := content.Hash(string(raw))
	if w.seen[path] == hash {
		return // unchanged since last ingest; avoid re-inserting on unrelated fs events
	}

	inputs := FileToInputs(path, string(raw), w.tags...)
	for _, input := range inputs {
		if _, err := w.pipeline.Create(ctx, input); err != nil {
			log.Printf("ingest: create memory from %s: %v", path, err)
			continue
		}
	}
	w.seen[path] = hash
}

func isMarkdown(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".md" || ext == ".markdown"
}
