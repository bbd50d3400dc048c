package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "notepad:"

// RedisStore keeps each note as a JSON string key and the listing order in a
// sorted set scored by an insertion sequence.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore returns a store using client. An empty prefix selects the
// default key namespace.
func NewRedisStore(client redis.UniversalClient, prefix string) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("notes: redis client is required")
	}
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) noteKey(id string) string {
	return fmt.Sprintf("%snote:%s", s.prefix, id)
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "notes"
}

func (s *RedisStore) sequenceKey() string {
	return s.prefix + "notes:seq"
}

// List returns notes in insertion order. Index entries whose key vanished are skipped.
func (s *RedisStore) List(ctx context.Context) ([]Note, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Note{}, nil
	}

	keys := make([]string, len(ids))
	for index, id := range ids {
		keys[index] = s.noteKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	stored := make([]Note, 0, len(values))
	for index, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		note, err := decodeRedisNote(raw)
		if err != nil {
			return nil, fmt.Errorf("notes: decode %s: %w", keys[index], err)
		}
		stored = append(stored, note)
	}
	return stored, nil
}

func (s *RedisStore) Get(ctx context.Context, id NoteID) (Note, error) {
	raw, err := s.client.Get(ctx, s.noteKey(id.String())).Result()
	if errors.Is(err, redis.Nil) {
		return Note{}, ErrNoteNotFound
	}
	if err != nil {
		return Note{}, err
	}
	note, err := decodeRedisNote(raw)
	if err != nil {
		return Note{}, fmt.Errorf("notes: decode %s: %w", s.noteKey(id.String()), err)
	}
	return note, nil
}

func (s *RedisStore) Insert(ctx context.Context, note Note) (Note, error) {
	note = note.normalized()
	data, err := json.Marshal(note)
	if err != nil {
		return Note{}, err
	}

	sequence, err := s.client.Incr(ctx, s.sequenceKey()).Result()
	if err != nil {
		return Note{}, err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.noteKey(note.ID), data, 0)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(sequence), Member: note.ID})
		return nil
	})
	if err != nil {
		return Note{}, err
	}
	return note, nil
}

func (s *RedisStore) Replace(ctx context.Context, note Note) (Note, error) {
	note = note.normalized()
	data, err := json.Marshal(note)
	if err != nil {
		return Note{}, err
	}
	updated, err := s.client.SetXX(ctx, s.noteKey(note.ID), data, 0).Result()
	if err != nil {
		return Note{}, err
	}
	if !updated {
		return Note{}, ErrNoteNotFound
	}
	return note, nil
}

func (s *RedisStore) Remove(ctx context.Context, id NoteID) error {
	var deleted *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, s.noteKey(id.String()))
		pipe.ZRem(ctx, s.indexKey(), id.String())
		return nil
	})
	if err != nil {
		return err
	}
	if deleted.Val() == 0 {
		return ErrNoteNotFound
	}
	return nil
}

func decodeRedisNote(raw string) (Note, error) {
	var note Note
	if err := json.Unmarshal([]byte(raw), &note); err != nil {
		return Note{}, err
	}
	return note.normalized(), nil
}
