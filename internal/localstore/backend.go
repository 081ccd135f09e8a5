// Package localstore keeps a kiosk's records in named slots, each holding a
// JSON document. Slots live in a directory of files or in Redis.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
)

// Slot names.
const (
	SlotVisitors         = "visitors"
	SlotEmergencySession = "emergency_session"
	SlotNotificationLogs = "notification_logs"
)

// Backend reads and writes raw slot values. Get reports ok=false for an
// absent slot.
type Backend interface {
	Get(slot string) (data []byte, ok bool, err error)
	Set(slot string, data []byte) error
	Delete(slot string) error
}

// FileBackend stores each slot as <dir>/<slot>.json.
type FileBackend struct {
	dir string
}

// NewFileBackend creates the directory if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// Dir returns the backing directory.
func (b *FileBackend) Dir() string {
	return b.dir
}

func (b *FileBackend) path(slot string) string {
	return filepath.Join(b.dir, slot+".json")
}

// Get reads a slot file.
func (b *FileBackend) Get(slot string) ([]byte, bool, error) {
	data, err := os.ReadFile(b.path(slot))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading slot %s: %w", slot, err)
	}
	return data, true, nil
}

// Set replaces a slot file, writing to a temp file first so readers never
// see a partial document.
func (b *FileBackend) Set(slot string, data []byte) error {
	tmp, err := os.CreateTemp(b.dir, slot+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing slot %s: %w", slot, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("closing slot %s: %w", slot, err)
	}
	if err := os.Rename(tmp.Name(), b.path(slot)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replacing slot %s: %w", slot, err)
	}
	return nil
}

// Delete removes a slot file. Deleting an absent slot is not an error.
func (b *FileBackend) Delete(slot string) error {
	if err := os.Remove(b.path(slot)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing slot %s: %w", slot, err)
	}
	return nil
}

// DefaultRedisPrefix namespaces slot keys.
const DefaultRedisPrefix = "kiosk"

const redisTimeout = 2 * time.Second

// RedisBackend stores each slot under the key <prefix>:<slot>.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend wraps an existing client. An empty prefix uses
// DefaultRedisPrefix.
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisBackend{client: client, prefix: prefix}
}

// DialRedis connects to addr and pings it.
func DialRedis(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return client, nil
}

func (b *RedisBackend) key(slot string) string {
	return b.prefix + ":" + slot
}

// Get reads a slot key.
func (b *RedisBackend) Get(slot string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	data, err := b.client.Get(ctx, b.key(slot)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading slot %s: %w", slot, err)
	}
	return data, true, nil
}

// Set writes a slot key with no expiry.
func (b *RedisBackend) Set(slot string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	if err := b.client.Set(ctx, b.key(slot), data, 0).Err(); err != nil {
		return fmt.Errorf("writing slot %s: %w", slot, err)
	}
	return nil
}

// Delete removes a slot key.
func (b *RedisBackend) Delete(slot string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	if err := b.client.Del(ctx, b.key(slot)).Err(); err != nil {
		return fmt.Errorf("removing slot %s: %w", slot, err)
	}
	return nil
}
