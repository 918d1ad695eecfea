package diagchan

// MaxChannels bounds the number of distinct channels per realm. The registry
// and the subscriber table share it.
const MaxChannels = 1024

// PublishMember is the member a counterpart must expose as a Function to
// receive published messages.
const PublishMember = "publish"

// Object is a value owned by the scripted layer.
type Object interface {
	// Get returns the named member, or false if the object has none.
	Get(member string) (any, bool)
}

// Function is a callable value owned by the scripted layer.
type Function interface {
	Call(recv Object, args ...any) (any, error)
}

// Func adapts an ordinary Go function to Function.
type Func func(recv Object, args ...any) (any, error)

// Call invokes f.
func (f Func) Call(recv Object, args ...any) (any, error) {
	return f(recv, args...)
}

// LinkFunc resolves a channel name to its scripted counterpart.
// An error means the callback failed. A result that does not implement
// Object is treated the same way.
type LinkFunc func(name string) (any, error)

// Gate reports whether native code may currently call into the scripted layer.
type Gate interface {
	CanCallIn() bool
}

// GateFunc adapts a function to Gate.
type GateFunc func() bool

// CanCallIn calls f.
func (f GateFunc) CanCallIn() bool { return f() }

// AlwaysOpen is a Gate that never blocks call-ins.
var AlwaysOpen Gate = GateFunc(func() bool { return true })
