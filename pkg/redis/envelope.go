package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/zoobzio/pulsewatch"
)

// envelope is the published form of a ChangeMessage. Kind travels
// alongside the entity so the receiver knows which record to decode.
type envelope struct {
	Type   pulsewatch.ChangeType `json:"type"`
	ID     uint32                `json:"id"`
	Kind   pulsewatch.Kind       `json:"kind,omitempty"`
	Entity json.RawMessage       `json:"entity,omitempty"`
}

// Encode serializes msg for publishing.
func Encode(msg pulsewatch.ChangeMessage) ([]byte, error) {
	env := envelope{Type: msg.Type, ID: msg.ID}
	if msg.Entity != nil {
		data, err := json.Marshal(msg.Entity)
		if err != nil {
			return nil, fmt.Errorf("marshal entity: %w", err)
		}
		env.Kind = msg.Entity.Kind()
		env.Entity = data
	}
	return json.Marshal(env)
}

// Decode parses a published message.
func Decode(data []byte) (pulsewatch.ChangeMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return pulsewatch.ChangeMessage{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	switch env.Type {
	case pulsewatch.ChangeDelete:
		return pulsewatch.Delete(env.ID), nil
	case pulsewatch.ChangeAdd:
		e, err := decodeEntity(env.Kind, env.Entity)
		if err != nil {
			return pulsewatch.ChangeMessage{}, err
		}
		return pulsewatch.Add(env.ID, e), nil
	default:
		return pulsewatch.ChangeMessage{}, fmt.Errorf("unknown change type %d", env.Type)
	}
}

func decodeEntity(k pulsewatch.Kind, data []byte) (pulsewatch.Entity, error) {
	switch k {
	case pulsewatch.KindSink:
		return decodeAs[pulsewatch.Sink](data)
	case pulsewatch.KindSource:
		return decodeAs[pulsewatch.Source](data)
	case pulsewatch.KindSinkInput:
		return decodeAs[pulsewatch.SinkInput](data)
	case pulsewatch.KindSourceOutput:
		return decodeAs[pulsewatch.SourceOutput](data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, k)
	}
}

func decodeAs[T pulsewatch.Entity](data []byte) (pulsewatch.Entity, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal entity: %w", err)
	}
	return v, nil
}

func sortByIndex[T pulsewatch.Entity](items []T) {
	slices.SortFunc(items, func(a, b T) int {
		switch {
		case a.Index() < b.Index():
			return -1
		case a.Index() > b.Index():
			return 1
		}
		return 0
	})
}

// Follow subscribes to the changes channel and returns the decoded
// messages. Undecodable payloads are skipped. The channel closes when ctx
// is done or the subscription ends.
func (m *Mirror) Follow(ctx context.Context) (<-chan pulsewatch.ChangeMessage, error) {
	pubsub := m.client.Subscribe(ctx, m.Channel())
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", m.Channel(), err)
	}

	out := make(chan pulsewatch.ChangeMessage)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-ch:
				if !ok {
					return
				}
				msg, err := Decode([]byte(raw.Payload))
				if err != nil {
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
