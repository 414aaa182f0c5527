package sources

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/buildveto/internal/change"
	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
)

// FilesystemOptions configures the filesystem provider.
type FilesystemOptions struct {
	Folder   string `mapstructure:"folder"`
	Username string `mapstructure:"username"`
	// Ignore holds glob patterns matched against each file's base name.
	Ignore []string `mapstructure:"ignore"`
}

// Filesystem reports files under a folder whose modification time falls in
// the evaluation window.
type Filesystem struct {
	fixedAuthor
	opts FilesystemOptions
}

// NewFilesystem returns a filesystem poller.
func NewFilesystem(opts FilesystemOptions) *Filesystem {
	return &Filesystem{fixedAuthor: newFixedAuthor(opts.Username, ""), opts: opts}
}

func (f *Filesystem) Validate() error {
	return requireDir(f.opts.Folder, "folder")
}

func (f *Filesystem) Modifications(ctx context.Context, since, now time.Time) ([]change.Modification, error) {
	var mods []change.Modification
	err := filepath.WalkDir(f.opts.Folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || f.ignored(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !change.InWindow(info.ModTime(), since, now) {
			return nil
		}
		mods = append(mods, change.Modification{
			Kind:      change.KindChange,
			Path:      d.Name(),
			Folder:    filepath.Dir(path),
			Timestamp: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to scan folder").
			Retryable().WithContext("folder", f.opts.Folder).Build()
	}
	change.SortByTime(mods)
	return f.attribute(mods), nil
}

func (f *Filesystem) ignored(name string) bool {
	for _, pattern := range f.opts.Ignore {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// requireDir validates that a configured option names an existing directory.
func requireDir(path, option string) error {
	if path == "" {
		return errors.ConfigError("required option not set").WithContext("option", option).Build()
	}
	info, err := os.Stat(path)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "directory does not exist").
			Fatal().WithContext("option", option).WithContext("path", path).Build()
	}
	if !info.IsDir() {
		return errors.ConfigError("path is not a directory").
			WithContext("option", option).WithContext("path", path).Build()
	}
	return nil
}

var _ change.Provider = (*Filesystem)(nil)
