package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/buildveto/internal/config"
	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
	"git.home.luguber.info/inful/buildveto/internal/sources"
	"git.home.luguber.info/inful/buildveto/internal/veto"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	Project string        `short:"p" help:"Only evaluate this project"`
	Since   time.Duration `short:"s" help:"Length of the evaluation window ending now" default:"1h"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	projects, err := selectProjects(cfg, c.Project)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	now := time.Now()
	return RunCheck(ctx, os.Stdout, sources.DefaultRegistry(g.logger()), projects, now.Add(-c.Since), now)
}

// RunCheck evaluates each project over (since, now] and prints one line per
// project. The first failure or inconsistency, in project order, is returned.
func RunCheck(ctx context.Context, w io.Writer, reg *sources.Registry, projects []config.Project, since, now time.Time) error {
	var first error
	for i := range projects {
		p := &projects[i]
		d, err := checkProject(ctx, reg, p, since, now)
		if err != nil {
			_, _ = fmt.Fprintf(w, "%s: error: %v\n", p.Name, err)
			if first == nil {
				first = err
			}
			continue
		}
		_, _ = fmt.Fprintln(w, formatDecision(p.Name, d))
		if first == nil {
			first = d.Err()
		}
	}
	return first
}

func checkProject(ctx context.Context, reg *sources.Registry, p *config.Project, since, now time.Time) (veto.Decision, error) {
	provider, err := reg.Build(p.SourceControl)
	if err != nil {
		return veto.Decision{}, err
	}
	if err := provider.Validate(); err != nil {
		return veto.Decision{}, err
	}
	return veto.Decide(ctx, provider, since, now)
}

func formatDecision(project string, d veto.Decision) string {
	if !d.Inconsistent() {
		return fmt.Sprintf("%s: %s (%d trigger changes)", project, d.Outcome, d.TriggerChanges)
	}
	return fmt.Sprintf("%s: %s: %v", project, d.Outcome, d.Err())
}

func projectNotFound(name string) error {
	return errors.NewError(errors.CategoryNotFound, "unknown project").
		WithContext("project", name).Build()
}
