package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	NamespaceScans    = "scans"
	NamespacePayments = "payments"

	metaNamespace = "meta"
)

var (
	ErrNoSession = errors.New("no open session for user")
	ErrBadKey    = errors.New("user id and namespace are required")
)

// Store keeps per-user session data in Redis. Each (namespace, user) pair is
// its own hash, so two accounts on one device never share a key.
type Store struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{Client: client, TTL: ttl}
}

func key(namespace, userID string) string {
	return fmt.Sprintf("session:%s:%s", namespace, userID)
}

func indexKey(userID string) string {
	return "session:index:" + userID
}

// Open starts a session for userID on sign-in. Opening an already open
// session only refreshes it.
func (s *Store) Open(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrBadKey
	}
	_, err := s.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key(metaNamespace, userID), "opened_at", time.Now().UTC().Format(time.RFC3339))
		p.SAdd(ctx, indexKey(userID), metaNamespace)
		p.Expire(ctx, key(metaNamespace, userID), s.TTL)
		p.Expire(ctx, indexKey(userID), s.TTL)
		return nil
	})
	return err
}

// Close removes every namespace of userID. Closing twice is not an error.
func (s *Store) Close(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrBadKey
	}
	namespaces, err := s.Client.SMembers(ctx, indexKey(userID)).Result()
	if err != nil {
		return err
	}

	keys := []string{indexKey(userID)}
	for _, ns := range namespaces {
		keys = append(keys, key(ns, userID))
	}
	return s.Client.Del(ctx, keys...).Err()
}

// Put stores value, JSON encoded, under field. The session's TTL restarts
// on every write.
func (s *Store) Put(ctx context.Context, userID, namespace, field string, value interface{}) error {
	if userID == "" || namespace == "" {
		return ErrBadKey
	}
	if err := s.requireOpen(ctx, userID); err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	_, err = s.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key(namespace, userID), field, data)
		p.SAdd(ctx, indexKey(userID), namespace)
		for _, k := range []string{key(namespace, userID), key(metaNamespace, userID), indexKey(userID)} {
			p.Expire(ctx, k, s.TTL)
		}
		return nil
	})
	return err
}

// Get decodes field into dest and reports whether it was present.
func (s *Store) Get(ctx context.Context, userID, namespace, field string, dest interface{}) (bool, error) {
	if userID == "" || namespace == "" {
		return false, ErrBadKey
	}
	raw, err := s.Client.HGet(ctx, key(namespace, userID), field).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(raw, dest)
}

// All returns the raw JSON values of a namespace keyed by field.
func (s *Store) All(ctx context.Context, userID, namespace string) (map[string]json.RawMessage, error) {
	if userID == "" || namespace == "" {
		return nil, ErrBadKey
	}
	values, err := s.Client.HGetAll(ctx, key(namespace, userID)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(values))
	for field, v := range values {
		out[field] = json.RawMessage(v)
	}
	return out, nil
}

func (s *Store) requireOpen(ctx context.Context, userID string) error {
	n, err := s.Client.Exists(ctx, indexKey(userID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoSession
	}
	return nil
}
