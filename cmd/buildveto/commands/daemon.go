package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/buildveto/internal/config"
	"git.home.luguber.info/inful/buildveto/internal/daemon"
	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	DataDir  string `short:"d" help:"Override the configured data directory"`
	HTTPAddr string `name:"http-addr" help:"Override the configured health and metrics address"`
	NoWatch  bool   `name:"no-watch" help:"Do not reload the configuration file on change"`
}

func (d *DaemonCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if d.DataDir != "" {
		cfg.Daemon.DataDir = d.DataDir
	}
	if d.HTTPAddr != "" {
		cfg.Daemon.HTTPAddr = d.HTTPAddr
	}

	opts := daemon.Options{Logger: g.logger()}
	if !d.NoWatch {
		opts.ConfigPath = root.Config
	}
	return RunDaemon(cfg, opts)
}

// RunDaemon runs the daemon until SIGINT or SIGTERM.
func RunDaemon(cfg *config.Config, opts daemon.Options) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dmn, err := daemon.NewDaemon(cfg, opts)
	if err != nil {
		return errors.WrapError(err, errors.CategoryDaemon, "failed to create daemon").Build()
	}
	return dmn.Run(ctx)
}
