package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/buildveto/internal/config"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"buildveto.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Check    CheckCmd    `cmd:"" help:"Evaluate every project once and report the decision"`
	Validate ValidateCmd `cmd:"" help:"Validate the configuration and every configured provider"`
	Daemon   DaemonCmd   `cmd:"" help:"Evaluate projects on a schedule and serve status and metrics"`
	Mark     MarkCmd     `cmd:"" help:"Record a build status marker in redis"`
	Init     InitCmd     `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

func (g *Global) logger() *slog.Logger {
	if g == nil || g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

// selectProjects returns every project, or only the named one.
func selectProjects(cfg *config.Config, name string) ([]config.Project, error) {
	if name == "" {
		return cfg.Projects, nil
	}
	p, ok := cfg.Project(name)
	if !ok {
		return nil, projectNotFound(name)
	}
	return []config.Project{*p}, nil
}
