package pulsewatch

import "fmt"

// ChangeType distinguishes upserts from removals.
type ChangeType int

const (
	// ChangeAdd inserts or replaces the entity with the message ID.
	ChangeAdd ChangeType = iota + 1
	// ChangeDelete removes the ID from every kind's collection.
	ChangeDelete
)

// String returns the string representation of the change type.
func (t ChangeType) String() string {
	switch t {
	case ChangeAdd:
		return "add"
	case ChangeDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ChangeMessage is the unit delivered to consumers. Entity is set for
// ChangeAdd and nil for ChangeDelete.
//
// A Delete carries no kind: the consumer removes the ID from all four
// collections. Consumers should treat an Add for an existing ID as an
// upsert, since an enumeration and a live fetch may report the same entity.
type ChangeMessage struct {
	Type   ChangeType
	ID     uint32
	Entity Entity
}

// Add builds an upsert message.
func Add(id uint32, e Entity) ChangeMessage {
	return ChangeMessage{Type: ChangeAdd, ID: id, Entity: e}
}

// Delete builds a removal message.
func Delete(id uint32) ChangeMessage {
	return ChangeMessage{Type: ChangeDelete, ID: id}
}

// Kind returns the kind of the carried entity, or KindUnspecified for a
// Delete.
func (m ChangeMessage) Kind() Kind {
	if m.Entity == nil {
		return KindUnspecified
	}
	return m.Entity.Kind()
}

// String returns a compact form for diagnostics.
func (m ChangeMessage) String() string {
	if m.Type == ChangeDelete || m.Entity == nil {
		return fmt.Sprintf("%s(%d)", m.Type, m.ID)
	}
	return fmt.Sprintf("%s(%d,%s)", m.Type, m.ID, m.Entity.Kind())
}
