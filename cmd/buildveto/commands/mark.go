package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"git.home.luguber.info/inful/buildveto/internal/change"
	"git.home.luguber.info/inful/buildveto/internal/sources"
)

// MarkCmd implements the 'mark' command. Build jobs run it on success so a
// redis buildstatus provider sees the build.
type MarkCmd struct {
	Addr     string        `help:"Redis address" default:"localhost:6379" env:"BUILDVETO_REDIS_ADDR"`
	Password string        `help:"Redis password" env:"BUILDVETO_REDIS_PASSWORD"`
	DB       int           `help:"Redis database"`
	Key      string        `help:"Sorted set holding the markers" default:"buildveto:buildstatus"`
	Author   string        `help:"Author recorded on the marker (defaults to $USER)"`
	Comment  string        `help:"Free-form comment, e.g. the build number"`
	Path     string        `help:"Artifact or log path recorded on the marker"`
	Revision string        `help:"Revision that was built"`
	Timeout  time.Duration `help:"Write timeout" default:"10s"`
}

func (m *MarkCmd) Run(_ *Global, _ *CLI) error {
	r := sources.NewRedis(sources.RedisOptions{
		Addr:     m.Addr,
		Password: m.Password,
		DB:       m.DB,
		Key:      m.Key,
	})
	defer func() { _ = r.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), m.Timeout)
	defer cancel()

	author := m.Author
	if author == "" {
		author = os.Getenv("USER")
	}
	if author == "" {
		author = sources.DefaultUsername
	}
	return RunMark(ctx, os.Stdout, r, change.Modification{
		Author:   author,
		Comment:  m.Comment,
		Path:     m.Path,
		Revision: m.Revision,
	})
}

// RunMark validates r and writes one marker.
func RunMark(ctx context.Context, w io.Writer, r *sources.Redis, m change.Modification) error {
	if err := r.Validate(); err != nil {
		return err
	}
	stored, err := r.Mark(ctx, m)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "marked %s at %s\n", stored.Kind, stored.Timestamp.Format(time.RFC3339Nano))
	return nil
}
