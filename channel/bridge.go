package channel

import (
	"go.uber.org/zap"

	"github.com/wippyai/diagchan"
	"github.com/wippyai/diagchan/errors"
)

// InstallBridge installs fn as the realm's bridge, replacing any previous
// one, and links every existing channel that is still unlinked. A snapshot
// taken from inside fn discards the bridge being installed along with the
// channels; InstallBridge still returns nil.
func (r *Registry) InstallBridge(fn diagchan.LinkFunc) error {
	if fn == nil {
		return errors.InvalidInput(errors.PhaseLink, "bridge must not be nil")
	}
	r.bridge = fn

	linked := 0
	r.channels.Each(func(_ int, c *Channel) bool {
		if !c.IsLinked() && r.link(c) {
			linked++
		}
		return true
	})

	Logger().Debug("bridge installed",
		zap.Int("channels", r.channels.Live()),
		zap.Int("linked", linked))
	return nil
}

// HasBridge reports whether a bridge is installed.
func (r *Registry) HasBridge() bool {
	return r.bridge != nil
}

// ClearBridge removes the bridge. Existing links are kept.
func (r *Registry) ClearBridge() {
	r.bridge = nil
}

// link asks the bridge for c's counterpart and links it. Failures leave c
// unlinked; the next Channel call for the same name tries again.
func (r *Registry) link(c *Channel) bool {
	if r.bridge == nil || c.IsLinked() || c.linking {
		return false
	}
	c.linking = true
	defer func() { c.linking = false }()

	result, err := r.callBridge(c.name)
	if err != nil {
		Logger().Debug("bridge failed", zap.String("channel", c.name), zap.Error(err))
		return false
	}

	obj, ok := result.(diagchan.Object)
	if !ok || obj == nil {
		Logger().Debug("bridge result rejected",
			zap.String("channel", c.name),
			zap.Error(errors.NotObject(c.name, result)))
		return false
	}
	return c.Link(obj)
}

func (r *Registry) callBridge(name string) (result any, err error) {
	bridge := r.bridge
	defer func() {
		if rec := recover(); rec != nil {
			rethrowCapacity(rec)
			result, err = nil, errors.Recovered(errors.PhaseLink, name, rec)
		}
	}()
	return bridge(name)
}
