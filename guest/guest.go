package guest

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/diagchan"
	"github.com/wippyai/diagchan/errors"
	"github.com/wippyai/diagchan/subscriber"
)

// Unresolved is returned by the resolve import when no resolver is bound.
const Unresolved = ^uint32(0)

// Resolver maps channel names to indices. *channel.Registry implements it.
type Resolver interface {
	ChannelIndex(name string) uint32
}

// Guest is an instantiated guest module.
// It is not safe for concurrent use.
type Guest struct {
	runtime     wazero.Runtime
	module      api.Module
	memory      api.Memory
	table       *subscriber.Table
	resolver    Resolver
	resolve     api.Function
	subscribe   api.Function
	unsubscribe api.Function
	count       api.Function
	fatal       any
}

// New compiles and instantiates the guest module in a fresh wazero runtime.
func New(ctx context.Context) (*Guest, error) {
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithMemoryLimitPages(1))
	g := &Guest{runtime: rt}

	_, err := rt.NewHostModuleBuilder(HostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(g.resolveName), []api.ValueType{i32, i32}, []api.ValueType{i32}).
		Export(ResolveImport).
		Instantiate(ctx)
	if err != nil {
		rt.Close(ctx)
		return nil, errors.Guest(errors.KindInstantiation, "instantiate host module", err)
	}

	compiled, err := rt.CompileModule(ctx, guestModule())
	if err != nil {
		rt.Close(ctx)
		return nil, errors.Guest(errors.KindInstantiation, "compile guest module", err)
	}

	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName("diagchan_guest"))
	if err != nil {
		rt.Close(ctx)
		return nil, errors.Guest(errors.KindInstantiation, "instantiate guest module", err)
	}
	g.module = mod
	g.memory = mod.Memory()
	g.resolve = mod.ExportedFunction("resolve")
	g.subscribe = mod.ExportedFunction("subscribe")
	g.unsubscribe = mod.ExportedFunction("unsubscribe")
	g.count = mod.ExportedFunction("count")

	buf, ok := g.memory.Read(TableOffset, subscriber.Size)
	if !ok {
		rt.Close(ctx)
		return nil, errors.Guest(errors.KindInstantiation, "guest memory too small for subscriber table", nil)
	}
	if g.table, err = subscriber.NewTableOn(buf); err != nil {
		rt.Close(ctx)
		return nil, err
	}

	Logger().Debug("guest instantiated", zap.Uint32("memory_bytes", g.memory.Size()))
	return g, nil
}

// Table returns the subscriber table living in guest memory.
func (g *Guest) Table() *subscriber.Table {
	return g.table
}

// Bind sets the resolver used by the guest's resolve import.
func (g *Guest) Bind(r Resolver) {
	g.resolver = r
}

// Resolve stages name in guest memory and resolves it through the guest's
// import. It panics with a capacity error when the resolver runs out of
// indices.
func (g *Guest) Resolve(ctx context.Context, name string) (uint32, error) {
	if len(name) > MaxNameLen {
		return 0, errors.New(errors.PhaseGuest, errors.KindInvalidInput).
			Channel(name).
			Detail("name is %d bytes, limit is %d", len(name), MaxNameLen).
			Build()
	}
	if !g.memory.Write(ScratchOffset, []byte(name)) {
		return 0, errors.Guest(errors.KindOutOfBounds, "stage channel name", nil)
	}

	res, err := g.resolve.Call(ctx, uint64(ScratchOffset), uint64(len(name)))
	if fatal := g.fatal; fatal != nil {
		g.fatal = nil
		panic(fatal)
	}
	if err != nil {
		return 0, errors.Guest(errors.KindCallbackFailed, "resolve", err)
	}

	idx := api.DecodeU32(res[0])
	if idx == Unresolved {
		return 0, errors.New(errors.PhaseGuest, errors.KindNotFound).
			Channel(name).
			Detail("no resolver bound").
			Build()
	}
	return idx, nil
}

// Subscribe increments the counter at index inside the guest.
func (g *Guest) Subscribe(ctx context.Context, index uint32) (uint32, error) {
	return g.callCounter(ctx, g.subscribe, "subscribe", index)
}

// Unsubscribe decrements the counter at index inside the guest. The counter
// does not go below zero.
func (g *Guest) Unsubscribe(ctx context.Context, index uint32) (uint32, error) {
	return g.callCounter(ctx, g.unsubscribe, "unsubscribe", index)
}

// Count reads the counter at index through the guest.
func (g *Guest) Count(ctx context.Context, index uint32) (uint32, error) {
	return g.callCounter(ctx, g.count, "count", index)
}

// Close releases the runtime and everything instantiated in it.
func (g *Guest) Close(ctx context.Context) error {
	g.table = nil
	return g.runtime.Close(ctx)
}

func (g *Guest) callCounter(ctx context.Context, fn api.Function, op string, index uint32) (uint32, error) {
	if index >= diagchan.MaxChannels {
		return 0, errors.OutOfBounds(errors.PhaseGuest, int(index), diagchan.MaxChannels)
	}
	res, err := fn.Call(ctx, api.EncodeU32(index))
	if err != nil {
		return 0, errors.Guest(errors.KindCallbackFailed, op, err)
	}
	return api.DecodeU32(res[0]), nil
}

// resolveName implements the get_or_create_channel_index import.
func (g *Guest) resolveName(_ context.Context, mod api.Module, stack []uint64) {
	ptr := api.DecodeU32(stack[0])
	n := api.DecodeU32(stack[1])

	stack[0] = api.EncodeU32(Unresolved)
	if g.resolver == nil {
		return
	}
	raw, ok := mod.Memory().Read(ptr, n)
	if !ok {
		Logger().Warn("resolve name out of bounds", zap.Uint32("ptr", ptr), zap.Uint32("len", n))
		return
	}
	name := string(raw)

	defer func() {
		// Resolve raises r again once the guest call has unwound.
		if r := recover(); r != nil {
			g.fatal = r
			panic(r)
		}
	}()
	stack[0] = api.EncodeU32(g.resolver.ChannelIndex(name))
}
