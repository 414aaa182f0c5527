package sources

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/buildveto/internal/change"
	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
)

// DefaultBuildLogPattern matches successful build logs.
const DefaultBuildLogPattern = "*.log"

// PropMostRecentLog names the newest log file seen by BuildStatus.
const PropMostRecentLog = "most.recent.logfile"

// BuildStatusOptions configures the buildstatus provider.
type BuildStatusOptions struct {
	LogDir  string `mapstructure:"log_dir"`
	Pattern string `mapstructure:"pattern"`
}

// BuildStatus treats every successful build log written in the window as a
// status change. A project's log directory therefore acts as its build
// status marker.
type BuildStatus struct {
	opts  BuildStatusOptions
	props *change.Properties
}

// NewBuildStatus returns a build-log status provider.
func NewBuildStatus(opts BuildStatusOptions) *BuildStatus {
	if opts.Pattern == "" {
		opts.Pattern = DefaultBuildLogPattern
	}
	return &BuildStatus{opts: opts, props: change.NewProperties("")}
}

func (b *BuildStatus) Validate() error {
	if err := requireDir(b.opts.LogDir, "log_dir"); err != nil {
		return err
	}
	if _, err := filepath.Match(b.opts.Pattern, ""); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid log pattern").
			Fatal().WithContext("pattern", b.opts.Pattern).Build()
	}
	return nil
}

func (b *BuildStatus) Modifications(_ context.Context, since, now time.Time) ([]change.Modification, error) {
	entries, err := os.ReadDir(b.opts.LogDir)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read build log directory").
			Retryable().WithContext("log_dir", b.opts.LogDir).Build()
	}

	var mods []change.Modification
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(b.opts.Pattern, entry.Name()); !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		if !change.InWindow(info.ModTime(), since, now) {
			continue
		}
		mods = append(mods, change.Modification{
			Kind:      change.KindBuildStatus,
			Author:    "buildveto",
			Path:      entry.Name(),
			Folder:    b.opts.LogDir,
			Timestamp: info.ModTime(),
			Comment:   "successful build",
		})
	}
	change.SortByTime(mods)
	if latest, ok := change.Latest(mods); ok {
		b.props.Record(mods)
		b.props.Put(PropMostRecentLog, latest.Path)
	}
	return mods, nil
}

func (b *BuildStatus) Properties() map[string]string { return b.props.Drain() }

var _ change.Provider = (*BuildStatus)(nil)
