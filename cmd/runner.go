package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plexsync/internal/services"
	"github.com/desertthunder/plexsync/internal/shared"
	"github.com/desertthunder/plexsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	source  services.Catalog
	target  services.Catalog
	markers services.MarkerStore
	logger  *log.Logger
	output  io.Writer
	engine  tasks.SyncEngine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	Source  services.Catalog
	Target  services.Catalog
	Markers services.MarkerStore
	Logger  *log.Logger
	Output  io.Writer
	Engine  tasks.SyncEngine
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Engine == nil {
		opts.Engine = tasks.NewCatalogEngine(opts.Source, opts.Target, opts.Markers)
	}

	return &Runner{
		config:  opts.Config,
		source:  opts.Source,
		target:  opts.Target,
		markers: opts.Markers,
		logger:  opts.Logger,
		output:  opts.Output,
		engine:  opts.Engine,
	}
}

// SetLogger swaps the Runner's logger, used when the TUI redirects logs to a file.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, syncCommand, diffCommand, snapshotCommand, catalogCommand, runsCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// catalogSide resolves a --side flag value to a configured catalog.
func (r *Runner) catalogSide(side string) (services.Catalog, error) {
	switch side {
	case tasks.SourceSide:
		if r.source == nil {
			return nil, fmt.Errorf("%w: source catalog not initialized", shared.ErrServiceUnavailable)
		}
		return r.source, nil
	case tasks.TargetSide:
		if r.target == nil {
			return nil, fmt.Errorf("%w: target catalog not initialized", shared.ErrServiceUnavailable)
		}
		return r.target, nil
	default:
		return nil, fmt.Errorf("%w: side must be %q or %q", shared.ErrInvalidArgument, tasks.SourceSide, tasks.TargetSide)
	}
}
