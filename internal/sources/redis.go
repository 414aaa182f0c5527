package sources

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	backend "github.com/redis/go-redis/v9"

	"git.home.luguber.info/inful/buildveto/internal/change"
	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
)

// DefaultRedisKey is the sorted set used when no key is configured.
const DefaultRedisKey = "buildveto:buildstatus"

// RedisOptions configures the redis provider and the marker writer.
type RedisOptions struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// Redis reads status markers from a sorted set. Members are JSON encoded
// change records scored by their timestamp in unix milliseconds.
type Redis struct {
	client *backend.Client
	addr   string
	key    string
	props  *change.Properties
}

// NewRedis connects lazily to the configured server.
func NewRedis(opts RedisOptions) *Redis {
	client := backend.NewClient(&backend.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	r := NewRedisFromClient(client, opts.Key)
	// go-redis substitutes localhost when Addr is empty.
	r.addr = opts.Addr
	return r
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *backend.Client, key string) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{client: client, addr: client.Options().Addr, key: key, props: change.NewProperties("")}
}

func (r *Redis) Validate() error {
	if r.addr == "" {
		return errors.ConfigError("required option not set").WithContext("option", "addr").Build()
	}
	return nil
}

func (r *Redis) Modifications(ctx context.Context, since, now time.Time) ([]change.Modification, error) {
	// Scores are truncated to milliseconds, so the query is inclusive and the
	// exact window is applied to the decoded timestamps.
	members, err := r.client.ZRangeByScoreWithScores(ctx, r.key, &backend.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRedis, "failed to read status markers").
			Retryable().WithContext("key", r.key).Build()
	}

	mods := make([]change.Modification, 0, len(members))
	for _, z := range members {
		raw, _ := z.Member.(string)
		var m change.Modification
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, errors.WrapError(err, errors.CategoryRedis, "malformed status marker").
				WithContext("key", r.key).Build()
		}
		if m.Timestamp.IsZero() {
			m.Timestamp = time.UnixMilli(int64(z.Score))
		}
		if change.InWindow(m.Timestamp, since, now) {
			mods = append(mods, m)
		}
	}
	r.props.Record(mods)
	return mods, nil
}

func (r *Redis) Properties() map[string]string { return r.props.Drain() }

// Mark records a status change. Kind defaults to buildstatus and a zero
// timestamp is replaced with the current time.
func (r *Redis) Mark(ctx context.Context, m change.Modification) (change.Modification, error) {
	if m.Kind == "" {
		m.Kind = change.KindBuildStatus
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	data, err := json.Marshal(m)
	if err != nil {
		return m, errors.WrapError(err, errors.CategoryInternal, "failed to encode status marker").Build()
	}
	err = r.client.ZAdd(ctx, r.key, backend.Z{
		Score:  float64(m.Timestamp.UnixMilli()),
		Member: string(data),
	}).Err()
	if err != nil {
		return m, errors.WrapError(err, errors.CategoryRedis, "failed to write status marker").
			Retryable().WithContext("key", r.key).Build()
	}
	return m, nil
}

// Close releases the client connection pool.
func (r *Redis) Close() error { return r.client.Close() }

var _ change.Provider = (*Redis)(nil)
