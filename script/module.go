package script

import (
	"go.uber.org/zap"

	"github.com/wippyai/diagchan"
	"github.com/wippyai/diagchan/channel"
	"github.com/wippyai/diagchan/subscriber"
)

// ErrorHandler receives failures raised by subscribers during publish.
type ErrorHandler func(name string, err error)

// Module owns the script channels of one realm.
type Module struct {
	registry *channel.Registry
	table    *subscriber.Table
	onError  ErrorHandler
	channels map[string]*Channel
	tracing  map[string]*TracingChannel
}

// Option configures a Module.
type Option func(*Module)

// WithErrorHandler sets the handler for subscriber failures. By default they
// are logged.
func WithErrorHandler(h ErrorHandler) Option {
	return func(m *Module) {
		if h != nil {
			m.onError = h
		}
	}
}

// New creates a module writing subscriber counts into reg's table.
func New(reg *channel.Registry, opts ...Option) *Module {
	m := &Module{
		registry: reg,
		table:    reg.Subscribers(),
		channels: make(map[string]*Channel),
		tracing:  make(map[string]*TracingChannel),
	}
	m.onError = func(name string, err error) {
		Logger().Error("subscriber failed", zap.String("channel", name), zap.Error(err))
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Channel returns the script channel for name, creating it on first use.
// Creation reserves the name's index in the registry.
func (m *Module) Channel(name string) *Channel {
	if c, ok := m.channels[name]; ok {
		return c
	}
	c := &Channel{
		module: m,
		name:   name,
		index:  m.registry.ChannelIndex(name),
	}
	m.channels[name] = c
	return c
}

// Subscribe adds fn to the named channel.
func (m *Module) Subscribe(name string, fn Subscriber) *Subscription {
	return m.Channel(name).Subscribe(fn)
}

// Unsubscribe removes a subscription made through Subscribe.
func (m *Module) Unsubscribe(sub *Subscription) bool {
	if sub == nil {
		return false
	}
	return sub.Unsubscribe()
}

// HasSubscribers reports whether the named channel exists and has subscribers.
// It never creates the channel.
func (m *Module) HasSubscribers(name string) bool {
	c, ok := m.channels[name]
	return ok && c.HasSubscribers()
}

// Bridge returns the function the native registry uses to resolve a channel
// name to its script counterpart.
func (m *Module) Bridge() diagchan.LinkFunc {
	return func(name string) (any, error) {
		return m.Channel(name), nil
	}
}

// Link installs the module's bridge into the registry.
func (m *Module) Link() error {
	return m.registry.InstallBridge(m.Bridge())
}

func (m *Module) reportError(name string, err error) {
	m.onError(name, err)
}
