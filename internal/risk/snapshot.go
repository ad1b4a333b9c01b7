package risk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/rxtech-lab/argo-ladder/internal/version"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SnapshotStore persists a State between live invocations.
type SnapshotStore interface {
	Save(ctx context.Context, key string, state *State) error
	// Load returns ErrCodeDataNotFound when no snapshot exists for key.
	Load(ctx context.Context, key string) (*State, error)
}

// MarshalState encodes a state snapshot as YAML.
func MarshalState(state *State) ([]byte, error) {
	snapshot := state.Clone()
	if snapshot.Version == "" {
		snapshot.Version = StateVersion
	}

	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSnapshotFailed, "failed to encode state", err)
	}

	return data, nil
}

// UnmarshalState decodes a snapshot and checks its version against StateVersion.
func UnmarshalState(data []byte) (*State, error) {
	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSnapshotFailed, "failed to decode state", err)
	}

	if err := version.CheckSnapshotCompatibility(StateVersion, state.Version); err != nil {
		return nil, errors.Wrap(errors.ErrCodeVersionMismatch, "incompatible state snapshot", err)
	}

	state.ensure()

	return &state, nil
}

// FileSnapshotStore keeps one YAML file per key under Dir.
type FileSnapshotStore struct {
	Dir string
}

func NewFileSnapshotStore(dir string) *FileSnapshotStore {
	return &FileSnapshotStore{Dir: dir}
}

func (f *FileSnapshotStore) path(key string) string {
	return filepath.Join(f.Dir, key+".yaml")
}

func (f *FileSnapshotStore) Save(_ context.Context, key string, state *State) error {
	data, err := MarshalState(state)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(f.Dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeSnapshotFailed, "failed to create snapshot directory", err)
	}

	if err := writeFileAtomic(f.path(key), data, 0644); err != nil {
		return errors.Wrapf(errors.ErrCodeSnapshotFailed, err, "failed to write snapshot %s", key)
	}

	return nil
}

func (f *FileSnapshotStore) Load(_ context.Context, key string) (*State, error) {
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no snapshot for %s", key)
	}

	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeSnapshotFailed, err, "failed to read snapshot %s", key)
	}

	return UnmarshalState(data)
}

// writeFileAtomic writes to a temp file in the same directory, syncs it and
// renames it over path.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()

		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()

		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

// RedisSnapshotStore keeps snapshots as YAML strings under Prefix+key.
type RedisSnapshotStore struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	Prefix   string `yaml:"prefix" json:"prefix"`
	// TTL of zero keeps snapshots forever.
	TTL time.Duration `yaml:"ttl" json:"ttl"`
}

// NewRedisSnapshotStore connects to Redis and pings it.
func NewRedisSnapshotStore(ctx context.Context, cfg RedisConfig) (*RedisSnapshotStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()

		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, fmt.Sprintf("redis ping %s", cfg.Addr), err)
	}

	return NewRedisSnapshotStoreWithClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewRedisSnapshotStoreWithClient wraps an existing client.
func NewRedisSnapshotStoreWithClient(client *goredis.Client, prefix string, ttl time.Duration) *RedisSnapshotStore {
	if prefix == "" {
		prefix = "ladder:state:"
	}

	return &RedisSnapshotStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisSnapshotStore) Save(ctx context.Context, key string, state *State) error {
	data, err := MarshalState(state)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		return errors.Wrapf(errors.ErrCodeSnapshotFailed, err, "redis set %s", key)
	}

	return nil
}

func (r *RedisSnapshotStore) Load(ctx context.Context, key string) (*State, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err == goredis.Nil {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no snapshot for %s", key)
	}

	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeSnapshotFailed, err, "redis get %s", key)
	}

	return UnmarshalState(data)
}

// Close releases the Redis connection pool.
func (r *RedisSnapshotStore) Close() error {
	return r.client.Close()
}
