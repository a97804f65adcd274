package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/dgallion1/lexgest/internal/app"
	"github.com/dgallion1/lexgest/internal/parser"
	"github.com/dgallion1/lexgest/internal/pipeline"
	"github.com/spf13/cobra"
	"gopkg.in/fsnotify.v1"
)

var (
	watchIndex  bool
	watchSettle time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Import documents as they appear in a folder",
	Long: `Watch DIR and import every supported document created or rewritten in it.
A file is imported once it has not changed for --settle, so partially copied
files are not parsed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, log, err := buildApp(ctx, app.Needs{Index: watchIndex})
		if err != nil {
			return err
		}
		defer a.Close()

		w, err := newFolderWatcher(args[0], watchSettle, log)
		if err != nil {
			return err
		}
		defer w.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", titleStyle.Render("Watching"), args[0])
		for {
			path, ok := w.settled(ctx)
			if !ok {
				return nil
			}
			docs, err := readDocuments([]string{path})
			if err != nil {
				log.Warn("read failed", "file", path, "error", err)
				continue
			}
			job, res, err := a.Ingestor.Ingest(ctx, docs, pipeline.IngestOptions{})
			if err != nil {
				log.Error("import failed", "file", path, "error", err)
			}
			printJob(cmd.OutOrStdout(), job.Snapshot(), res)
		}
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchIndex, "index", false, "Rebuild the vector index after each import")
	watchCmd.Flags().DurationVar(&watchSettle, "settle", 2*time.Second, "Quiet period before a changed file is imported")
	rootCmd.AddCommand(watchCmd)
}

// folderWatcher emits paths of supported files once they stop changing.
type folderWatcher struct {
	Ready chan string

	watcher *fsnotify.Watcher
	settle  time.Duration
	log     *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	done    chan struct{}
}

func newFolderWatcher(dir string, settle time.Duration, log *slog.Logger) (*folderWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	fw := &folderWatcher{
		Ready:   make(chan string, 16),
		watcher: watcher,
		settle:  settle,
		log:     log,
		pending: make(map[string]*time.Timer),
		done:    make(chan struct{}),
	}
	go fw.loop()
	if err := watcher.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching directory %s: %w", dir, err)
	}
	return fw, nil
}

func (fw *folderWatcher) loop() {
	for {
		select {
		case <-fw.done:
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !parser.IsSupportedExtension(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				fw.touch(filepath.Clean(event.Name))
			}
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.log.Warn("watch error", "error", err)
		}
	}
}

// touch (re)starts the settle timer for path.
func (fw *folderWatcher) touch(path string) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if t, ok := fw.pending[path]; ok {
		t.Reset(fw.settle)
		return
	}
	fw.pending[path] = time.AfterFunc(fw.settle, func() {
		fw.mu.Lock()
		delete(fw.pending, path)
		fw.mu.Unlock()
		select {
		case fw.Ready <- path:
		case <-fw.done:
		}
	})
}

func (fw *folderWatcher) Close() error {
	fw.mu.Lock()
	for _, t := range fw.pending {
		t.Stop()
	}
	fw.pending = map[string]*time.Timer{}
	fw.mu.Unlock()
	select {
	case <-fw.done:
	default:
		close(fw.done)
	}
	return fw.watcher.Close()
}

// settled blocks until path is ready or ctx ends.
func (fw *folderWatcher) settled(ctx context.Context) (string, bool) {
	select {
	case p := <-fw.Ready:
		return p, true
	case <-ctx.Done():
		return "", false
	}
}
