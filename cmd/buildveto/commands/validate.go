package commands

import (
	"fmt"
	"io"
	"os"

	"git.home.luguber.info/inful/buildveto/internal/config"
	"git.home.luguber.info/inful/buildveto/internal/sources"
)

// ValidateCmd implements the 'validate' command.
type ValidateCmd struct{}

func (v *ValidateCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	return RunValidate(os.Stdout, sources.DefaultRegistry(g.logger()), cfg)
}

// RunValidate builds and validates every project's provider tree.
func RunValidate(w io.Writer, reg *sources.Registry, cfg *config.Config) error {
	for i := range cfg.Projects {
		p := &cfg.Projects[i]
		provider, err := reg.Build(p.SourceControl)
		if err == nil {
			err = provider.Validate()
		}
		if err != nil {
			_, _ = fmt.Fprintf(w, "%s: invalid: %v\n", p.Name, err)
			return err
		}
		_, _ = fmt.Fprintf(w, "%s: ok\n", p.Name)
	}
	_, _ = fmt.Fprintf(w, "configuration valid (%d projects)\n", len(cfg.Projects))
	return nil
}
