package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/syssam/sqlt/compiler/gen"
	"github.com/syssam/sqlt/compiler/load"
)

func newGenerateCommand(log zerolog.Logger) *cobra.Command {
	var (
		configPath string
		outDir     string
		pkg        string
		workers    int
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Compile the project file and write generated Go code",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !watch {
				return runGenerate(log, configPath, outDir, pkg, workers)
			}
			return watchGenerate(cmd.Context(), log, configPath, outDir, pkg, workers)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "sqlt.yaml", "path to the project file")
	cmd.Flags().StringVarP(&outDir, "out", "o", "./sqltgen", "output directory for generated code")
	cmd.Flags().StringVar(&pkg, "package", "", "generated package name (defaults to the output directory name)")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel file writers (0 uses GOMAXPROCS)")
	cmd.Flags().BoolVar(&watch, "watch", false, "regenerate whenever the project file changes")

	return cmd
}

func runGenerate(log zerolog.Logger, configPath, outDir, pkg string, workers int) error {
	start := time.Now()
	project, err := load.Load(configPath)
	if err != nil {
		return err
	}
	res, err := project.Compile()
	if err != nil {
		return err
	}
	g := gen.New(outDir).WithPackage(pkg).WithWorkers(workers)
	if err := g.Generate(context.Background(), res); err != nil {
		return err
	}
	log.Info().
		Int("entities", len(res.Entities)).
		Int("freestanding", len(res.Freestanding)).
		Str("out", outDir).
		Dur("elapsed", time.Since(start)).
		Msg("generated")
	return nil
}

// watchGenerate regenerates on every write to the project file, with a
// short debounce so editors writing in bursts trigger one run.
func watchGenerate(ctx context.Context, log zerolog.Logger, configPath, outDir, pkg string, workers int) error {
	if err := runGenerate(log, configPath, outDir, pkg, workers); err != nil {
		log.Error().Err(err).Msg("generation failed")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	abs, err := filepath.Abs(configPath)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	log.Info().Str("config", abs).Msg("watching")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if p, err := filepath.Abs(event.Name); err != nil || p != abs {
				continue
			}
			debounce.Reset(300 * time.Millisecond)
		case <-debounce.C:
			if err := runGenerate(log, configPath, outDir, pkg, workers); err != nil {
				log.Error().Err(err).Msg("generation failed")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("watch error")
		case <-ctx.Done():
			return nil
		}
	}
}
