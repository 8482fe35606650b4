package pulsewatch

import "fmt"

// Kind is the category of an entity managed by the device server.
type Kind int

const (
	// KindUnspecified marks a notification that arrived without a kind.
	KindUnspecified Kind = iota
	KindSink
	KindSource
	KindSinkInput
	KindSourceOutput
	KindModule
	KindClient
	KindSampleCache
	KindServer
	KindCard
)

// SupportedKinds lists the kinds that have a representation in the
// reconciled state, in snapshot order.
var SupportedKinds = []Kind{KindSink, KindSource, KindSinkInput, KindSourceOutput}

// Supported reports whether notifications of this kind produce messages.
// Every kind is listed so that adding one is a deliberate decision.
func (k Kind) Supported() bool {
	switch k {
	case KindSink, KindSource, KindSinkInput, KindSourceOutput:
		return true
	case KindModule, KindClient, KindSampleCache, KindServer, KindCard:
		return false
	default:
		return false
	}
}

// Valid reports whether k names a known kind.
func (k Kind) Valid() bool {
	return k >= KindSink && k <= KindCard
}

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindSink:
		return "sink"
	case KindSource:
		return "source"
	case KindSinkInput:
		return "sink-input"
	case KindSourceOutput:
		return "source-output"
	case KindModule:
		return "module"
	case KindClient:
		return "client"
	case KindSampleCache:
		return "sample-cache"
	case KindServer:
		return "server"
	case KindCard:
		return "card"
	default:
		return "unspecified"
	}
}

// Mask returns the subscription bit for the kind, or zero if it has none.
func (k Kind) Mask() SubscriptionMask {
	switch k {
	case KindSink:
		return MaskSink
	case KindSource:
		return MaskSource
	case KindSinkInput:
		return MaskSinkInput
	case KindSourceOutput:
		return MaskSourceOutput
	case KindModule:
		return MaskModule
	case KindClient:
		return MaskClient
	case KindSampleCache:
		return MaskSampleCache
	case KindServer:
		return MaskServer
	case KindCard:
		return MaskCard
	default:
		return MaskNone
	}
}

// Operation is the verb carried by a notification.
type Operation int

const (
	// OperationUnspecified marks a notification that arrived without an operation.
	OperationUnspecified Operation = iota
	OperationNew
	OperationChanged
	OperationRemoved
)

// Valid reports whether o names a known operation.
func (o Operation) Valid() bool {
	return o >= OperationNew && o <= OperationRemoved
}

// String returns the string representation of the operation.
func (o Operation) String() string {
	switch o {
	case OperationNew:
		return "new"
	case OperationChanged:
		return "changed"
	case OperationRemoved:
		return "removed"
	default:
		return "unspecified"
	}
}

// SubscriptionMask selects the kinds a subscription reports.
type SubscriptionMask uint32

// Subscription mask bits as defined by the audio server protocol.
const (
	MaskNone         SubscriptionMask = 0x0000
	MaskSink         SubscriptionMask = 0x0001
	MaskSource       SubscriptionMask = 0x0002
	MaskSinkInput    SubscriptionMask = 0x0004
	MaskSourceOutput SubscriptionMask = 0x0008
	MaskModule       SubscriptionMask = 0x0010
	MaskClient       SubscriptionMask = 0x0020
	MaskSampleCache  SubscriptionMask = 0x0040
	MaskServer       SubscriptionMask = 0x0080
	MaskCard         SubscriptionMask = 0x0200
	MaskAll          SubscriptionMask = 0x02ff
)

// Has reports whether the mask covers kind k.
func (m SubscriptionMask) Has(k Kind) bool {
	bit := k.Mask()
	return bit != MaskNone && m&bit == bit
}

// Packed subscription event layout: the low nibble is the facility, bits
// 4-5 the event type.
const (
	eventFacilityMask = 0x000f
	eventTypeMask     = 0x0030

	eventNew     = 0x0000
	eventChange  = 0x0010
	eventRemove  = 0x0020
	facilityCard = 0x0009
)

// RawNotification is produced once per native subscription callback and
// consumed exactly once by the Demultiplexer.
type RawNotification struct {
	Kind      Kind
	Operation Operation
	ID        uint32
}

// String returns a compact form for diagnostics.
func (n RawNotification) String() string {
	return fmt.Sprintf("%s/%s#%d", n.Kind, n.Operation, n.ID)
}

// DecodeEvent unpacks a protocol subscription event word. Unknown
// facilities or types decode to the unspecified values.
func DecodeEvent(event, index uint32) RawNotification {
	n := RawNotification{ID: index}

	switch f := event & eventFacilityMask; {
	case f <= 7:
		n.Kind = KindSink + Kind(f)
	case f == facilityCard:
		n.Kind = KindCard
	}

	switch event & eventTypeMask {
	case eventNew:
		n.Operation = OperationNew
	case eventChange:
		n.Operation = OperationChanged
	case eventRemove:
		n.Operation = OperationRemoved
	}

	return n
}

// EncodeEvent packs a notification into the protocol event word. It is the
// inverse of DecodeEvent for valid notifications.
func EncodeEvent(n RawNotification) uint32 {
	var event uint32
	switch {
	case n.Kind == KindCard:
		event = facilityCard
	case n.Kind.Valid():
		event = uint32(n.Kind - KindSink)
	default:
		event = eventFacilityMask
	}
	switch n.Operation {
	case OperationChanged:
		event |= eventChange
	case OperationRemoved:
		event |= eventRemove
	case OperationNew:
	default:
		event |= eventTypeMask
	}
	return event
}
