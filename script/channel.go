package script

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/diagchan"
	"github.com/wippyai/diagchan/errors"
)

// Subscriber receives a published message and the channel name.
type Subscriber func(msg any, name string)

// Transform maps published data to the value a bound store runs with.
type Transform func(data any) any

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	channel *Channel
	fn      Subscriber
}

// Unsubscribe removes the subscription. It reports false when it was
// already removed.
func (s *Subscription) Unsubscribe() bool {
	return s.channel.Unsubscribe(s)
}

// Channel returns the channel the subscription belongs to.
func (s *Subscription) Channel() *Channel {
	return s.channel
}

type storeBinding struct {
	store     *Store
	transform Transform
}

// Channel is a named script channel.
type Channel struct {
	module *Module
	name   string
	index  uint32
	subs   []*Subscription
	stores []storeBinding
}

// Name returns the channel name.
func (c *Channel) Name() string { return c.name }

// Index returns the channel's slot in the subscriber table.
func (c *Channel) Index() uint32 { return c.index }

// Subscribe appends fn to the subscriber list.
func (c *Channel) Subscribe(fn Subscriber) *Subscription {
	if fn == nil {
		panic(errors.InvalidInput(errors.PhaseRegistry, "subscriber must not be nil"))
	}
	sub := &Subscription{channel: c, fn: fn}
	c.subs = append(c.subs, sub)
	c.retain()
	return sub
}

// Unsubscribe removes sub. It reports false if sub is not subscribed here.
func (c *Channel) Unsubscribe(sub *Subscription) bool {
	for i, s := range c.subs {
		if s != sub {
			continue
		}
		// Copy so a publish in progress keeps iterating its own view.
		c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
		c.release()
		return true
	}
	return false
}

// BindStore makes RunStores run with store set to transform(data). A nil
// transform passes data through. Binding a store again replaces its transform.
func (c *Channel) BindStore(store *Store, transform Transform) {
	if transform == nil {
		transform = func(v any) any { return v }
	}
	for i := range c.stores {
		if c.stores[i].store == store {
			c.stores[i].transform = transform
			return
		}
	}
	c.stores = append(c.stores, storeBinding{store: store, transform: transform})
	c.retain()
}

// UnbindStore removes a bound store.
func (c *Channel) UnbindStore(store *Store) bool {
	for i := range c.stores {
		if c.stores[i].store != store {
			continue
		}
		c.stores = append(c.stores[:i:i], c.stores[i+1:]...)
		c.release()
		return true
	}
	return false
}

// HasSubscribers reports whether any subscriber or store is attached.
func (c *Channel) HasSubscribers() bool {
	return len(c.subs) > 0 || len(c.stores) > 0
}

// Publish calls every subscriber with msg in subscription order. A panicking
// subscriber is reported to the module's error handler and does not stop
// delivery to the rest.
func (c *Channel) Publish(msg any) {
	subs := c.subs
	for _, s := range subs {
		c.deliver(s, msg)
	}
}

func (c *Channel) deliver(s *Subscription, msg any) {
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok && errors.IsCapacity(err) {
				panic(r)
			}
			c.module.reportError(c.name, errors.Recovered(errors.PhasePublish, c.name, r))
		}
	}()
	s.fn(msg, c.name)
}

// RunStores publishes data, then calls fn inside every bound store. The
// store bound last is entered first.
func (c *Channel) RunStores(ctx context.Context, data any, fn func(context.Context) (any, error)) (any, error) {
	c.Publish(data)

	next := fn
	for _, b := range c.stores {
		next = b.wrap(data, next)
	}
	return next(ctx)
}

func (b storeBinding) wrap(data any, next func(context.Context) (any, error)) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		return b.store.Run(ctx, b.transform(data), next)
	}
}

// Get exposes the channel to the native layer as a scripted object.
func (c *Channel) Get(member string) (any, bool) {
	switch member {
	case diagchan.PublishMember:
		return diagchan.Func(c.publishMember), true
	case "name":
		return c.name, true
	case "hasSubscribers":
		return c.HasSubscribers(), true
	}
	return nil, false
}

func (c *Channel) publishMember(_ diagchan.Object, args ...any) (any, error) {
	var msg any
	if len(args) > 0 {
		msg = args[0]
	}
	c.Publish(msg)
	return nil, nil
}

func (c *Channel) retain() {
	if _, err := c.module.table.Increment(c.index); err != nil {
		Logger().Warn("subscriber count not updated", zap.String("channel", c.name), zap.Error(err))
	}
}

func (c *Channel) release() {
	if _, err := c.module.table.Decrement(c.index); err != nil {
		Logger().Warn("subscriber count not updated", zap.String("channel", c.name), zap.Error(err))
	}
}
