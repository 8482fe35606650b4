// Package redis mirrors the reconciled device state into Redis.
//
// Each supported kind is stored in one hash, keyed by index:
//
//	<prefix>:sink          {"1": <json>, "2": <json>}
//	<prefix>:sink-input    {"4": <json>}
//
// Every applied change is also published on <prefix>:changes so other
// processes can follow the same sequence with Follow.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/zoobzio/pipz"
	"github.com/zoobzio/pulsewatch"
)

// DefaultPrefix is the key prefix used when none is configured.
const DefaultPrefix = "pulsewatch"

// ErrUnsupportedKind is returned for envelopes or lookups of kinds without
// a representation.
var ErrUnsupportedKind = errors.New("unsupported kind")

// Mirror writes ChangeMessages into Redis hashes.
type Mirror struct {
	client  redis.UniversalClient
	prefix  string
	publish bool
}

// Option configures a Mirror.
type Option func(*Mirror)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(m *Mirror) { m.prefix = prefix }
}

// WithoutPublish disables publishing on the changes channel.
func WithoutPublish() Option {
	return func(m *Mirror) { m.publish = false }
}

// New creates a Mirror on client.
func New(client redis.UniversalClient, opts ...Option) *Mirror {
	m := &Mirror{client: client, prefix: DefaultPrefix, publish: true}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// HashKey returns the hash holding entities of kind k.
func (m *Mirror) HashKey(k pulsewatch.Kind) string {
	return m.prefix + ":" + k.String()
}

// Channel returns the pub/sub channel changes are published on.
func (m *Mirror) Channel() string {
	return m.prefix + ":changes"
}

// Apply stores one change. An Add upserts into the hash of its kind; a
// Delete removes the index from every hash. Both happen in one transaction
// together with the publish.
func (m *Mirror) Apply(ctx context.Context, msg pulsewatch.ChangeMessage) error {
	payload, err := Encode(msg)
	if err != nil {
		return err
	}
	field := strconv.FormatUint(uint64(msg.ID), 10)

	_, err = m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		switch msg.Type {
		case pulsewatch.ChangeAdd:
			k := msg.Kind()
			if !k.Supported() {
				return fmt.Errorf("%w: %s", ErrUnsupportedKind, k)
			}
			data, err := json.Marshal(msg.Entity)
			if err != nil {
				return fmt.Errorf("marshal %s %d: %w", k, msg.ID, err)
			}
			pipe.HSet(ctx, m.HashKey(k), field, data)
		case pulsewatch.ChangeDelete:
			for _, k := range pulsewatch.SupportedKinds {
				pipe.HDel(ctx, m.HashKey(k), field)
			}
		}
		if m.publish {
			pipe.Publish(ctx, m.Channel(), payload)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis mirror: %w", err)
	}
	return nil
}

// Consume applies messages from ch until it closes, ctx is done or a write
// fails.
func (m *Mirror) Consume(ctx context.Context, ch <-chan pulsewatch.ChangeMessage) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := m.Apply(ctx, msg); err != nil {
				return err
			}
		}
	}
}

// Processor returns a pipeline stage that applies every message before it
// is forwarded. A failed write withholds the message, so the Redis copy
// never lags the output channel.
func (m *Mirror) Processor() pipz.Chainable[*pulsewatch.ChangeMessage] {
	return pulsewatch.UseEffect("redis-mirror", func(ctx context.Context, msg *pulsewatch.ChangeMessage) error {
		return m.Apply(ctx, *msg)
	})
}

// Clear removes every hash owned by the mirror.
func (m *Mirror) Clear(ctx context.Context) error {
	keys := make([]string, 0, len(pulsewatch.SupportedKinds))
	for _, k := range pulsewatch.SupportedKinds {
		keys = append(keys, m.HashKey(k))
	}
	return m.client.Del(ctx, keys...).Err()
}

// Len returns the number of stored entities of kind k.
func (m *Mirror) Len(ctx context.Context, k pulsewatch.Kind) (int64, error) {
	return m.client.HLen(ctx, m.HashKey(k)).Result()
}

// Get loads one entity of kind k. A missing index returns redis.Nil.
func (m *Mirror) Get(ctx context.Context, k pulsewatch.Kind, id uint32) (pulsewatch.Entity, error) {
	data, err := m.client.HGet(ctx, m.HashKey(k), strconv.FormatUint(uint64(id), 10)).Bytes()
	if err != nil {
		return nil, err
	}
	return decodeEntity(k, data)
}

// Sinks loads every stored sink.
func (m *Mirror) Sinks(ctx context.Context) ([]pulsewatch.Sink, error) {
	return loadAll[pulsewatch.Sink](ctx, m, pulsewatch.KindSink)
}

// Sources loads every stored source.
func (m *Mirror) Sources(ctx context.Context) ([]pulsewatch.Source, error) {
	return loadAll[pulsewatch.Source](ctx, m, pulsewatch.KindSource)
}

// SinkInputs loads every stored sink input.
func (m *Mirror) SinkInputs(ctx context.Context) ([]pulsewatch.SinkInput, error) {
	return loadAll[pulsewatch.SinkInput](ctx, m, pulsewatch.KindSinkInput)
}

// SourceOutputs loads every stored source output.
func (m *Mirror) SourceOutputs(ctx context.Context) ([]pulsewatch.SourceOutput, error) {
	return loadAll[pulsewatch.SourceOutput](ctx, m, pulsewatch.KindSourceOutput)
}

func loadAll[T pulsewatch.Entity](ctx context.Context, m *Mirror, k pulsewatch.Kind) ([]T, error) {
	rows, err := m.client.HGetAll(ctx, m.HashKey(k)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rows))
	for field, data := range rows {
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", k, field, err)
		}
		out = append(out, v)
	}
	sortByIndex(out)
	return out, nil
}
