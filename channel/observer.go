package channel

// DropReason says why a publish with subscribers did not reach the scripted layer.
type DropReason uint8

const (
	// DropNotLinked means the channel has no scripted counterpart yet.
	DropNotLinked DropReason = iota + 1
	// DropCallInBlocked means the realm currently forbids calls into the scripted layer.
	DropCallInBlocked
	// DropNotCallable means the counterpart has no callable publish member.
	DropNotCallable
	// DropEntryPointFailed means the publish entry point returned an error or panicked.
	DropEntryPointFailed
)

// String returns the reason as a metric-friendly label.
func (r DropReason) String() string {
	switch r {
	case DropNotLinked:
		return "not_linked"
	case DropCallInBlocked:
		return "call_in_blocked"
	case DropNotCallable:
		return "not_callable"
	case DropEntryPointFailed:
		return "entry_point_failed"
	default:
		return "unknown"
	}
}

// Observer is notified about channel lifecycle and publish outcomes.
// Publishes to channels without subscribers are never reported.
type Observer interface {
	ChannelCreated(name string, index uint32)
	ChannelLinked(name string, eager bool)
	ChannelUnlinked(name string)
	Delivered(name string)
	Dropped(name string, reason DropReason)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) ChannelCreated(string, uint32) {}
func (NopObserver) ChannelLinked(string, bool)    {}
func (NopObserver) ChannelUnlinked(string)        {}
func (NopObserver) Delivered(string)              {}
func (NopObserver) Dropped(string, DropReason)    {}
