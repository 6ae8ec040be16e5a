package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/matchtag/internal/domain/session"
	"github.com/okian/matchtag/internal/replay"
	"github.com/okian/matchtag/pkg/logger"
)

const (
	defaultPlays   = 40
	defaultTimeout = time.Minute
)

func main() {
	var (
		scriptFile = flag.String("script", "", "JSON script to replay (default: generate one)")
		seed       = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Seed for the generated match")
		plays      = flag.Int("plays", defaultPlays, "Plays per half in a generated match")
		dump       = flag.String("dump", "", "Write the replayed script to this file")
		output     = flag.String("output", "", "Write the report to this file (default: stdout)")
		timeline   = flag.Bool("timeline", false, "Include the combined timeline in the report")
		kickout    = flag.Float64("kickout-delay", 1, "Seconds between a score and its seeded kickout")
		logFormat  = flag.String("log-format", "text", "Log format: text or json")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	if err := logger.Init(logger.WithWriter(os.Stderr), logger.WithFormat(*logFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	cfg := runConfig{
		scriptFile: *scriptFile,
		seed:       *seed,
		plays:      *plays,
		dump:       *dump,
		output:     *output,
		timeline:   *timeline,
		kickout:    *kickout,
	}
	if err := run(ctx, cfg, os.Stdout); err != nil {
		logger.Get().Error(ctx, "replay failed", logger.Error(err))
		os.Exit(1)
	}
}

type runConfig struct {
	scriptFile string
	seed       uint64
	plays      int
	dump       string
	output     string
	timeline   bool
	kickout    float64
}

func run(ctx context.Context, cfg runConfig, stdout io.Writer) error {
	script, err := loadScript(cfg)
	if err != nil {
		return err
	}
	if cfg.dump != "" {
		if err := writeFile(cfg.dump, func(w io.Writer) error { return replay.Encode(w, script) }); err != nil {
			return fmt.Errorf("dump script: %w", err)
		}
	}

	r := replay.NewRunner(
		replay.WithTimeline(cfg.timeline),
		replay.WithSessionOptions(session.WithKickoutDelay(cfg.kickout)),
	)
	rep, err := r.Run(ctx, script)
	if err != nil {
		return err
	}

	writeReport := func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	if cfg.output == "" {
		return writeReport(stdout)
	}
	return writeFile(cfg.output, writeReport)
}

func loadScript(cfg runConfig) (replay.Script, error) {
	if cfg.scriptFile == "" {
		return replay.Generate(cfg.seed, cfg.plays), nil
	}
	f, err := os.Open(cfg.scriptFile)
	if err != nil {
		return replay.Script{}, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()
	return replay.Decode(f)
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
