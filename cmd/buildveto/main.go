package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/buildveto/cmd/buildveto/commands"
	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
	"git.home.luguber.info/inful/buildveto/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("buildveto"),
		kong.Description("Decide whether a build is needed by reconciling trigger changes with build status."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := parser.Run(&commands.Global{Logger: slog.Default()}, cli)
	errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
