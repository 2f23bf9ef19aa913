package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/fieldverify/internal/lead"
)

// Redis stores each lead as a JSON document in one hash, with a sorted set
// scored by creation time for ordered paging.
//
//	<prefix>leads        hash  id -> JSON
//	<prefix>leads:index  zset  id scored by CreatedAt (unix µs)
//
// CreatedAt is stored at microsecond precision, which a float64 score holds
// exactly. Equal scores fall back to member order, so the index sorts the
// same way as sortLeads.
type Redis struct {
	client   *redis.Client
	hashKey  string
	indexKey string
}

var _ Repository = (*Redis)(nil)

// NewRedis wraps an existing client. Every key is namespaced by prefix.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{
		client:   client,
		hashKey:  prefix + "leads",
		indexKey: prefix + "leads:index",
	}
}

// OpenRedis connects to redisURL and verifies the connection.
func OpenRedis(ctx context.Context, redisURL, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedis(client, prefix), nil
}

func (r *Redis) List(ctx context.Context, f Filter) ([]lead.Lead, error) {
	// Pure paging walks the index instead of loading every document.
	if f == (Filter{Limit: f.Limit, Offset: f.Offset}) {
		return r.listPage(ctx, f.Offset, f.Limit)
	}

	docs, err := r.client.HGetAll(ctx, r.hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("load leads: %w", err)
	}

	leads := make([]lead.Lead, 0, len(docs))
	for id, doc := range docs {
		l, err := decodeLead(doc)
		if err != nil {
			return nil, fmt.Errorf("decode lead %s: %w", id, err)
		}
		leads = append(leads, l)
	}
	return filterSorted(leads, f), nil
}

func (r *Redis) listPage(ctx context.Context, offset, limit int) ([]lead.Lead, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(offset + limit - 1)
	}
	ids, err := r.client.ZRange(ctx, r.indexKey, int64(offset), stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	if len(ids) == 0 {
		return []lead.Lead{}, nil
	}

	vals, err := r.client.HMGet(ctx, r.hashKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("load leads: %w", err)
	}

	leads := make([]lead.Lead, 0, len(vals))
	for i, v := range vals {
		doc, ok := v.(string)
		if !ok {
			continue // indexed but deleted concurrently
		}
		l, err := decodeLead(doc)
		if err != nil {
			return nil, fmt.Errorf("decode lead %s: %w", ids[i], err)
		}
		leads = append(leads, l)
	}
	return leads, nil
}

func (r *Redis) Get(ctx context.Context, id string) (lead.Lead, error) {
	doc, err := r.client.HGet(ctx, r.hashKey, id).Result()
	if errors.Is(err, redis.Nil) {
		return lead.Lead{}, ErrNotFound
	}
	if err != nil {
		return lead.Lead{}, fmt.Errorf("get lead %s: %w", id, err)
	}
	return decodeLead(doc)
}

func (r *Redis) Create(ctx context.Context, l lead.Lead) error {
	doc, err := encodeLead(&l)
	if err != nil {
		return fmt.Errorf("encode lead %s: %w", l.ID, err)
	}

	var created *redis.BoolCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		created = pipe.HSetNX(ctx, r.hashKey, l.ID, doc)
		pipe.ZAddNX(ctx, r.indexKey, indexEntry(l))
		return nil
	})
	if err != nil {
		return fmt.Errorf("create lead %s: %w", l.ID, err)
	}
	if !created.Val() {
		return ErrExists
	}
	return nil
}

func (r *Redis) Update(ctx context.Context, l lead.Lead) error {
	exists, err := r.client.HExists(ctx, r.hashKey, l.ID).Result()
	if err != nil {
		return fmt.Errorf("check lead %s: %w", l.ID, err)
	}
	if !exists {
		return ErrNotFound
	}

	doc, err := encodeLead(&l)
	if err != nil {
		return fmt.Errorf("encode lead %s: %w", l.ID, err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.hashKey, l.ID, doc)
		pipe.ZAdd(ctx, r.indexKey, indexEntry(l))
		return nil
	})
	if err != nil {
		return fmt.Errorf("update lead %s: %w", l.ID, err)
	}
	return nil
}

func (r *Redis) UpsertMany(ctx context.Context, leads []lead.Lead) (inserted, updated int, err error) {
	if len(leads) == 0 {
		return 0, 0, nil
	}

	existsCmds := make([]*redis.BoolCmd, len(leads))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, l := range leads {
			existsCmds[i] = pipe.HExists(ctx, r.hashKey, l.ID)
		}
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("check existing leads: %w", err)
	}

	fields := make([]any, 0, 2*len(leads))
	members := make([]redis.Z, 0, len(leads))
	seen := make(map[string]bool, len(leads))
	for i, l := range leads {
		doc, err := encodeLead(&l)
		if err != nil {
			return 0, 0, fmt.Errorf("encode lead %s: %w", l.ID, err)
		}
		fields = append(fields, l.ID, doc)
		members = append(members, indexEntry(l))

		if existsCmds[i].Val() || seen[l.ID] {
			updated++
		} else {
			inserted++
		}
		seen[l.ID] = true
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.hashKey, fields...)
		pipe.ZAdd(ctx, r.indexKey, members...)
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("write leads: %w", err)
	}
	return inserted, updated, nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	n, err := r.DeleteMany(ctx, []string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Redis) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}

	var removed *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.HDel(ctx, r.hashKey, ids...)
		pipe.ZRem(ctx, r.indexKey, members...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete leads: %w", err)
	}
	return int(removed.Val()), nil
}

func (r *Redis) Count(ctx context.Context, f Filter) (int, error) {
	if f.IsZero() {
		n, err := r.client.HLen(ctx, r.hashKey).Result()
		if err != nil {
			return 0, fmt.Errorf("count leads: %w", err)
		}
		return int(n), nil
	}

	f.Limit, f.Offset = 0, 0
	leads, err := r.List(ctx, f)
	if err != nil {
		return 0, err
	}
	return len(leads), nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func indexEntry(l lead.Lead) redis.Z {
	return redis.Z{Score: float64(l.CreatedAt.UnixMicro()), Member: l.ID}
}

// encodeLead truncates l.CreatedAt to the index precision and returns the
// stored document.
func encodeLead(l *lead.Lead) ([]byte, error) {
	l.CreatedAt = l.CreatedAt.Truncate(time.Microsecond)
	return json.Marshal(l)
}

func decodeLead(doc string) (lead.Lead, error) {
	var l lead.Lead
	if err := json.Unmarshal([]byte(doc), &l); err != nil {
		return lead.Lead{}, err
	}
	return l, nil
}
