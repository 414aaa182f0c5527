package sources

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/buildveto/internal/change"
	"git.home.luguber.info/inful/buildveto/internal/config"
	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
	"git.home.luguber.info/inful/buildveto/internal/retry"
)

// PropCommitID holds the newest commit hash reported by Git.
const PropCommitID = "gitcommitid"

// GitOptions configures the git provider.
type GitOptions struct {
	Path   string `mapstructure:"path"`
	Branch string `mapstructure:"branch"`
	// Remote, when set together with Fetch, is fetched before reading the log
	// and the remote-tracking branch is inspected instead of the local one.
	Remote       string        `mapstructure:"remote"`
	Fetch        bool          `mapstructure:"fetch"`
	RetryMode    string        `mapstructure:"retry_mode"`
	RetryInitial time.Duration `mapstructure:"retry_initial"`
	RetryMax     time.Duration `mapstructure:"retry_max"`
	// Retries is nil when unset; zero disables fetch retries.
	Retries *int `mapstructure:"retries"`
}

// Git reports commits on a branch of a local clone whose committer time
// falls in the evaluation window.
type Git struct {
	opts   GitOptions
	policy retry.Policy
	props  *change.Properties
}

// NewGit returns a git log provider.
func NewGit(opts GitOptions) *Git {
	if opts.Fetch && opts.Remote == "" {
		opts.Remote = git.DefaultRemoteName
	}
	retries := -1 // keep default
	if opts.Retries != nil {
		retries = *opts.Retries
	}
	return &Git{
		opts:   opts,
		policy: retry.NewPolicy(config.NormalizeRetryBackoff(opts.RetryMode), opts.RetryInitial, opts.RetryMax, retries),
		props:  change.NewProperties(""),
	}
}

func (g *Git) Validate() error {
	if err := requireDir(g.opts.Path, "path"); err != nil {
		return err
	}
	if _, err := git.PlainOpen(g.opts.Path); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "path is not a git repository").
			Fatal().WithContext("path", g.opts.Path).Build()
	}
	return g.policy.Validate()
}

func (g *Git) Modifications(ctx context.Context, since, now time.Time) ([]change.Modification, error) {
	repo, err := git.PlainOpen(g.opts.Path)
	if err != nil {
		return nil, classifyGitError(err, "open", g.opts.Path)
	}
	if g.opts.Fetch {
		if err := g.fetch(ctx, repo); err != nil {
			return nil, err
		}
	}
	head, err := g.resolve(repo)
	if err != nil {
		return nil, classifyGitError(err, "resolve", g.opts.Path)
	}

	iter, err := repo.Log(&git.LogOptions{From: head, Since: &since, Until: &now})
	if err != nil {
		return nil, classifyGitError(err, "log", g.opts.Path)
	}
	defer iter.Close()

	var mods []change.Modification
	err = iter.ForEach(func(c *object.Commit) error {
		if !change.InWindow(c.Committer.When, since, now) {
			return nil
		}
		mods = append(mods, change.Modification{
			Kind:      change.KindChange,
			Author:    c.Author.Name,
			Path:      g.branchLabel(),
			Folder:    g.opts.Path,
			Timestamp: c.Committer.When,
			Comment:   strings.TrimSpace(c.Message),
			Revision:  c.Hash.String(),
		})
		return nil
	})
	if err != nil {
		return nil, classifyGitError(err, "log", g.opts.Path)
	}

	change.SortByTime(mods)
	if latest, ok := change.Latest(mods); ok {
		g.props.Record(mods)
		g.props.Put(PropCommitID, latest.Revision)
	}
	return mods, nil
}

func (g *Git) Properties() map[string]string { return g.props.Drain() }

func (g *Git) fetch(ctx context.Context, repo *git.Repository) error {
	return g.policy.Do(ctx, isTransientGitError, func() error {
		err := repo.FetchContext(ctx, &git.FetchOptions{RemoteName: g.opts.Remote})
		if err != nil && !stderrors.Is(err, git.NoErrAlreadyUpToDate) {
			return classifyGitError(err, "fetch", g.opts.Remote)
		}
		return nil
	})
}

func (g *Git) resolve(repo *git.Repository) (plumbing.Hash, error) {
	if g.opts.Branch == "" {
		ref, err := repo.Head()
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return ref.Hash(), nil
	}
	name := plumbing.NewBranchReferenceName(g.opts.Branch)
	if g.opts.Fetch {
		name = plumbing.NewRemoteReferenceName(g.opts.Remote, g.opts.Branch)
	}
	ref, err := repo.Reference(name, true)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return ref.Hash(), nil
}

func (g *Git) branchLabel() string {
	if g.opts.Branch == "" {
		return "HEAD"
	}
	return g.opts.Branch
}

// classifyGitError maps go-git failures onto error categories.
func classifyGitError(err error, op, target string) error {
	l := strings.ToLower(err.Error())
	b := errors.GitError("git operation failed").
		WithCause(err).
		WithContext("op", op).
		WithContext("target", target)
	switch {
	case strings.Contains(l, "authentication") || strings.Contains(l, "authorization"):
		b.WithCategory(errors.CategoryConfig).Fatal().WithRetry(errors.RetryUserAction)
	case stderrors.Is(err, git.ErrRepositoryNotExists) || stderrors.Is(err, plumbing.ErrReferenceNotFound):
		b.WithCategory(errors.CategoryNotFound).WithRetry(errors.RetryNever)
	case strings.Contains(l, "timeout") || strings.Contains(l, "connection reset") || strings.Contains(l, "hung up"):
		b.WithCategory(errors.CategoryNetwork)
	}
	return b.Build()
}

func isTransientGitError(err error) bool {
	if c, ok := errors.AsClassified(err); ok {
		return c.IsTransient()
	}
	return true
}

var _ change.Provider = (*Git)(nil)
