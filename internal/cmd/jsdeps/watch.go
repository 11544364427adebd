package jsdeps

import (
	"context"
	"io"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/albertocavalcante/depcrit/internal/cli"
	"github.com/albertocavalcante/depcrit/internal/depcrit"
	"github.com/albertocavalcante/depcrit/internal/logging"
)

// watch prints the criteria of file, then prints them again after every
// write to the file or to its alias configuration, until ctx is done. A
// failing run is reported and the loop keeps going.
func watch(ctx context.Context, opts depcrit.Options, file string, indent bool, stdout, stderr io.Writer) int {
	log := logging.OrNop(opts.Logger)

	abs, err := filepath.Abs(file)
	if err != nil {
		return cli.Fail(stderr, tool, err)
	}
	tsPath := opts.TSConfig
	if tsPath == "" {
		tsPath = opts.Config.TSConfigPath(opts.Root)
	}
	if tsPath, err = filepath.Abs(tsPath); err != nil {
		return cli.Fail(stderr, tool, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return cli.Fail(stderr, tool, err)
	}
	defer func() { _ = w.Close() }()

	// Directories are watched rather than files: editors commonly replace a
	// file by renaming over it, which drops a watch on the file itself.
	targets := map[string]bool{abs: true, tsPath: true}
	for path := range targets {
		if err := w.Add(filepath.Dir(path)); err != nil {
			return cli.Fail(stderr, tool, err)
		}
	}

	emit := func() {
		out, err := runOnce(ctx, opts, abs, indent)
		if err != nil {
			cli.Fail(stderr, tool, err)
			return
		}
		cli.WriteBytes(stdout, append(out, '\n'))
	}
	emit()

	for {
		select {
		case <-ctx.Done():
			return cli.ExitOK

		case event, ok := <-w.Events:
			if !ok {
				return cli.ExitOK
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !targets[filepath.Clean(event.Name)] {
				continue
			}
			log.Debug("file changed", zap.String("path", event.Name), zap.Stringer("op", event.Op))
			emit()

		case err, ok := <-w.Errors:
			if !ok {
				return cli.ExitOK
			}
			cli.Writef(stderr, "%s: watcher error: %v\n", tool, err)
		}
	}
}
