package script

import (
	"context"

	"github.com/wippyai/diagchan/errors"
)

// TraceContext is the message published on every tracing channel of one
// traced call. Result and Err are filled in as the call completes.
type TraceContext struct {
	Data   any
	Result any
	Err    error
}

// TracingHandlers subscribes to the channels of a TracingChannel. Nil
// handlers are skipped.
type TracingHandlers struct {
	Start    Subscriber
	End      Subscriber
	AsyncEnd Subscriber
	Error    Subscriber
}

// TracingSubscription holds the subscriptions made by TracingChannel.Subscribe.
type TracingSubscription struct {
	subs []*Subscription
}

// Callback is the completion callback of an asynchronous traced call.
type Callback func(result any, err error)

// TracingChannel bundles the start, end, asyncEnd and error channels of a
// traced operation.
type TracingChannel struct {
	name     string
	start    *Channel
	end      *Channel
	asyncEnd *Channel
	errored  *Channel
}

// TracingChannel returns the tracing channel for name, creating its four
// channels on first use.
func (m *Module) TracingChannel(name string) *TracingChannel {
	if tc, ok := m.tracing[name]; ok {
		return tc
	}
	tc := &TracingChannel{
		name:     name,
		start:    m.Channel("tracing:" + name + ":start"),
		end:      m.Channel("tracing:" + name + ":end"),
		asyncEnd: m.Channel("tracing:" + name + ":asyncEnd"),
		errored:  m.Channel("tracing:" + name + ":error"),
	}
	m.tracing[name] = tc
	return tc
}

// Name returns the traced operation's name.
func (tc *TracingChannel) Name() string { return tc.name }

func (tc *TracingChannel) Start() *Channel    { return tc.start }
func (tc *TracingChannel) End() *Channel      { return tc.end }
func (tc *TracingChannel) AsyncEnd() *Channel { return tc.asyncEnd }
func (tc *TracingChannel) Error() *Channel    { return tc.errored }

// HasSubscribers reports whether any of the four channels has subscribers.
func (tc *TracingChannel) HasSubscribers() bool {
	return tc.start.HasSubscribers() ||
		tc.end.HasSubscribers() ||
		tc.asyncEnd.HasSubscribers() ||
		tc.errored.HasSubscribers()
}

// Subscribe attaches the non-nil handlers to their channels.
func (tc *TracingChannel) Subscribe(h TracingHandlers) *TracingSubscription {
	ts := &TracingSubscription{}
	add := func(c *Channel, fn Subscriber) {
		if fn != nil {
			ts.subs = append(ts.subs, c.Subscribe(fn))
		}
	}
	add(tc.start, h.Start)
	add(tc.end, h.End)
	add(tc.asyncEnd, h.AsyncEnd)
	add(tc.errored, h.Error)
	return ts
}

// Unsubscribe detaches every handler of ts. It reports false if any of
// them was no longer subscribed.
func (tc *TracingChannel) Unsubscribe(ts *TracingSubscription) bool {
	if ts == nil {
		return false
	}
	done := true
	for _, s := range ts.subs {
		if !s.Unsubscribe() {
			done = false
		}
	}
	return done
}

// TraceSync runs fn between start and end events. A returned error is
// recorded in data and published on the error channel before end. A panic in
// fn is published the same way and then re-raised.
func (tc *TracingChannel) TraceSync(ctx context.Context, data *TraceContext, fn func(context.Context) (any, error)) (any, error) {
	if !tc.HasSubscribers() {
		return fn(ctx)
	}
	if data == nil {
		data = &TraceContext{}
	}
	defer tc.end.Publish(data)
	defer func() {
		if rec := recover(); rec != nil {
			tc.publishPanic(data, rec)
			panic(rec)
		}
	}()

	result, err := tc.start.RunStores(ctx, data, fn)
	if err != nil {
		data.Err = err
		tc.errored.Publish(data)
		return result, err
	}
	data.Result = result
	return result, nil
}

// TraceCallback runs fn, which completes later by calling the callback it is
// given. Start and end surround the synchronous part; error and asyncEnd are
// published when the callback fires, before done is called. A panic in fn
// is published on the error channel and re-raised.
func (tc *TracingChannel) TraceCallback(ctx context.Context, data *TraceContext, fn func(context.Context, Callback) error, done Callback) error {
	if !tc.HasSubscribers() {
		return fn(ctx, done)
	}
	if data == nil {
		data = &TraceContext{}
	}

	wrapped := func(result any, err error) {
		if err != nil {
			data.Err = err
			tc.errored.Publish(data)
		} else {
			data.Result = result
		}
		tc.asyncEnd.Publish(data)
		if done != nil {
			done(result, err)
		}
	}

	defer tc.end.Publish(data)
	defer func() {
		if rec := recover(); rec != nil {
			tc.publishPanic(data, rec)
			panic(rec)
		}
	}()

	_, err := tc.start.RunStores(ctx, data, func(ctx context.Context) (any, error) {
		return nil, fn(ctx, wrapped)
	})
	if err != nil {
		data.Err = err
		tc.errored.Publish(data)
	}
	return err
}

func (tc *TracingChannel) publishPanic(data *TraceContext, rec any) {
	data.Err = errors.Recovered(errors.PhasePublish, tc.name, rec)
	tc.errored.Publish(data)
}
