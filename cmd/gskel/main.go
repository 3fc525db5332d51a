// Command gskel meshes skeletons described in a TOML job file and writes the result as an STL file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/soypat/gskel/command"
	"github.com/soypat/gskel/gskelaux"
	"github.com/soypat/gskel/voxrender"
)

type flags struct {
	job     string
	output  string
	watch   bool
	verbose bool
	ascii   bool
	workers int
}

func main() {
	var f flags
	flag.StringVar(&f.job, "job", "", "TOML job file to run")
	flag.StringVar(&f.output, "o", "out.stl", "output STL file")
	flag.BoolVar(&f.watch, "watch", false, "re-run the job every time the job file is written")
	flag.BoolVar(&f.verbose, "v", false, "verbose logging")
	flag.BoolVar(&f.ascii, "ascii", false, "write ASCII STL instead of binary")
	flag.IntVar(&f.workers, "workers", 0, "number of meshing goroutines, 0 uses all CPUs")
	flag.Parse()

	logger := gskelaux.NewLogger(os.Stderr, "gskel")
	if f.verbose {
		logger.SetLevel(log.DebugLevel)
	}
	if f.job == "" {
		flag.Usage()
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := run(ctx, logger, f)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("gskel failed", "err", err)
	}
}

func run(ctx context.Context, logger *log.Logger, f flags) error {
	err := runJob(ctx, logger, f)
	if !f.watch {
		return err
	} else if err != nil {
		logger.Error("job failed", "err", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	// Editors often replace files on save, watch the directory instead of the file.
	if err := watcher.Add(filepath.Dir(f.job)); err != nil {
		return err
	}
	target := filepath.Clean(f.job)
	logger.Info("watching for changes", "job", target)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-watcher.Events:
			if filepath.Clean(e.Name) != target || e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if err := runJob(ctx, logger, f); err != nil {
				logger.Error("job failed", "err", err)
			}
		case err := <-watcher.Errors:
			logger.Error("watcher", "err", err)
		}
	}
}

func runJob(ctx context.Context, logger *log.Logger, f flags) error {
	logger = logger.With("run", uuid.New().String()[:8])
	start := time.Now()
	fp, err := os.Open(f.job)
	if err != nil {
		return err
	}
	cfg, models, err := decodeJob(fp)
	fp.Close()
	if err != nil {
		return fmt.Errorf("decoding %s: %w", f.job, err)
	}
	proc := command.Processor{Logger: logger, Workers: f.workers}
	res, err := proc.Dispatch(ctx, cfg, models)
	if err != nil {
		return err
	}
	mesh := voxrender.Mesh{Vertices: res.Vertices, Indices: res.Indices}
	triangles, err := gskelaux.Triangles(&mesh)
	if err != nil {
		return err
	}
	out, err := os.Create(f.output)
	if err != nil {
		return err
	}
	if f.ascii {
		err = gskelaux.WriteASCIISTL(out, filepath.Base(f.job), triangles)
	} else {
		_, err = gskelaux.WriteBinarySTL(out, triangles)
	}
	if err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	logger.Info("wrote "+f.output, "triangles", len(triangles), "elapsed", time.Since(start))
	return nil
}
