package channel

import (
	"go.uber.org/zap"

	"github.com/wippyai/diagchan"
	"github.com/wippyai/diagchan/errors"
	"github.com/wippyai/diagchan/resource"
)

// Channel is the native handle of a named diagnostics channel.
type Channel struct {
	registry    *Registry
	name        string
	index       uint32
	linking     bool
	counterpart resource.Ref[diagchan.Object]
	publishFn   resource.Ref[diagchan.Function]
}

// Name returns the channel name.
func (c *Channel) Name() string { return c.name }

// Index returns the channel's slot in the subscriber table.
func (c *Channel) Index() uint32 { return c.index }

// HasSubscribers reports whether the scripted layer counts any subscriber.
func (c *Channel) HasSubscribers() bool {
	return c.registry != nil && c.registry.table.Count(c.index) > 0
}

// IsLinked reports whether the channel has a scripted counterpart.
func (c *Channel) IsLinked() bool {
	return !c.counterpart.IsEmpty()
}

// IsPublishCached reports whether the counterpart's publish entry point is resolved.
func (c *Channel) IsPublishCached() bool {
	return !c.publishFn.IsEmpty()
}

// Link attaches obj as the scripted counterpart. The publish entry point is
// resolved right away when subscribers already exist, otherwise on first
// publish. Linking an already linked channel does nothing and returns false.
func (c *Channel) Link(obj diagchan.Object) bool {
	if obj == nil || c.IsLinked() {
		return false
	}
	c.counterpart.Reset(obj)

	eager := false
	if c.HasSubscribers() {
		eager = c.cachePublish(obj)
	}

	Logger().Debug("channel linked",
		zap.String("channel", c.name),
		zap.Uint32("index", c.index),
		zap.Bool("eager", eager))
	c.observer().ChannelLinked(c.name, eager)
	return true
}

// Unlink forgets the counterpart together with its cached entry point.
func (c *Channel) Unlink() {
	if !c.IsLinked() {
		return
	}
	c.counterpart.Clear()
	c.publishFn.Clear()

	Logger().Debug("channel unlinked", zap.String("channel", c.name))
	c.observer().ChannelUnlinked(c.name)
}

// Drop unlinks the channel and detaches it from its registry. The registry
// calls it when the channel list is discarded.
func (c *Channel) Drop() {
	c.Unlink()
	c.registry = nil
}

// Publish hands msg to the scripted counterpart. It returns immediately when
// the channel has no subscribers, is not linked, or the realm forbids calls
// into the scripted layer. Failures are never reported to the caller.
func (c *Channel) Publish(msg any) {
	if !c.HasSubscribers() {
		return
	}

	r := c.registry
	obj, ok := c.counterpart.Get()
	if !ok {
		r.observer.Dropped(c.name, DropNotLinked)
		return
	}

	if !r.gate.CanCallIn() {
		r.observer.Dropped(c.name, DropCallInBlocked)
		return
	}

	fn, ok := c.publishFn.Get()
	if !ok {
		if !c.cachePublish(obj) {
			r.observer.Dropped(c.name, DropNotCallable)
			return
		}
		fn, _ = c.publishFn.Get()
	}

	if err := invoke(c.name, fn, obj, msg); err != nil {
		Logger().Debug("publish entry point failed", zap.String("channel", c.name), zap.Error(err))
		r.observer.Dropped(c.name, DropEntryPointFailed)
		return
	}
	r.observer.Delivered(c.name)
}

// cachePublish resolves obj's publish member and caches it.
func (c *Channel) cachePublish(obj diagchan.Object) bool {
	member, ok := getMember(c.name, obj, diagchan.PublishMember)
	if !ok {
		return false
	}
	fn, ok := member.(diagchan.Function)
	if f, isFunc := fn.(diagchan.Func); isFunc && f == nil {
		ok = false
	}
	if !ok || fn == nil {
		Logger().Debug("counterpart not publishable",
			zap.String("channel", c.name),
			zap.Error(errors.NotCallable(c.name, diagchan.PublishMember)))
		return false
	}
	c.publishFn.Reset(fn)
	return true
}

func (c *Channel) observer() Observer {
	if c.registry == nil {
		return NopObserver{}
	}
	return c.registry.observer
}

func getMember(name string, obj diagchan.Object, member string) (v any, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			rethrowCapacity(rec)
			Logger().Debug("member lookup panicked",
				zap.String("channel", name),
				zap.Error(errors.Recovered(errors.PhasePublish, name, rec)))
			v, ok = nil, false
		}
	}()
	return obj.Get(member)
}

func invoke(name string, fn diagchan.Function, recv diagchan.Object, msg any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			rethrowCapacity(rec)
			err = errors.Recovered(errors.PhasePublish, name, rec)
		}
	}()
	_, err = fn.Call(recv, msg)
	return err
}

// rethrowCapacity re-raises capacity panics, the only failure allowed to
// escape a reentrant call.
func rethrowCapacity(rec any) {
	if err, ok := rec.(error); ok && errors.IsCapacity(err) {
		panic(rec)
	}
}
