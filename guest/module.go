package guest

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/diagchan/subscriber"
)

const (
	// HostModule is the import module providing name resolution.
	HostModule    = "diagnostics_channel"
	// ResolveImport resolves a channel name to its index.
	ResolveImport = "get_or_create_channel_index"

	// TableOffset is where the subscriber table starts in guest memory.
	TableOffset   = 0
	// ScratchOffset is where names are staged before resolve calls.
	ScratchOffset = subscriber.Size
	// PageSize is the size of one wasm memory page.
	PageSize      = 65536
	// MaxNameLen is the longest name Resolve accepts.
	MaxNameLen    = PageSize - ScratchOffset
)

var i32 = api.ValueTypeI32

type funcType struct {
	params  []api.ValueType
	results []api.ValueType
}

type guestFunc struct {
	name   string
	typ    int
	locals uint32 // extra i32 locals
	body   []byte
}

// moduleBuilder assembles the guest module: one imported resolver, a fixed
// memory of one page and the exported counter functions.
type moduleBuilder struct {
	types []funcType
	funcs []guestFunc
}

func newModuleBuilder() *moduleBuilder {
	return &moduleBuilder{
		types: []funcType{
			{params: []api.ValueType{i32, i32}, results: []api.ValueType{i32}},
			{params: []api.ValueType{i32}, results: []api.ValueType{i32}},
		},
	}
}

func (b *moduleBuilder) addFunc(f guestFunc) {
	b.funcs = append(b.funcs, f)
}

// guestModule returns the binary of the guest module.
func guestModule() []byte {
	b := newModuleBuilder()

	// resolve(ptr, len) forwards to the host import.
	b.addFunc(guestFunc{name: "resolve", typ: 0, body: []byte{
		// local.get ptr
		0x20, 0x00,
		// local.get len
		0x20, 0x01,
		// call $get_or_create_channel_index
		0x10, 0x00,
		0x0b,
	}})

	// subscribe(i) increments table[i] and returns the new count.
	b.addFunc(guestFunc{name: "subscribe", typ: 1, locals: 2, body: []byte{
		// i << 2
		0x20, 0x00, 0x41, 0x02, 0x74,
		// local.tee addr
		0x22, 0x01,
		// i32.load addr
		0x20, 0x01, 0x28, 0x02, 0x00,
		// +1
		0x41, 0x01, 0x6a,
		// local.tee n
		0x22, 0x02,
		// i32.store
		0x36, 0x02, 0x00,
		0x20, 0x02,
		0x0b,
	}})

	// unsubscribe(i) decrements table[i], stopping at zero.
	b.addFunc(guestFunc{name: "unsubscribe", typ: 1, locals: 2, body: []byte{
		// i << 2
		0x20, 0x00, 0x41, 0x02, 0x74,
		// local.set addr
		0x21, 0x01,
		// i32.load addr
		0x20, 0x01, 0x28, 0x02, 0x00,
		// local.tee n
		0x22, 0x02,
		// i32.eqz
		0x45,
		// if
		0x04, 0x40,
		// return 0
		0x41, 0x00, 0x0f,
		0x0b,
		0x20, 0x01,
		// n - 1
		0x20, 0x02, 0x41, 0x01, 0x6b,
		0x22, 0x02,
		// i32.store
		0x36, 0x02, 0x00,
		0x20, 0x02,
		0x0b,
	}})

	// count(i) returns table[i].
	b.addFunc(guestFunc{name: "count", typ: 1, body: []byte{
		0x20, 0x00, 0x41, 0x02, 0x74,
		0x28, 0x02, 0x00,
		0x0b,
	}})

	return b.build()
}

func (b *moduleBuilder) build() []byte {
	var wasm []byte

	// Magic and version
	wasm = append(wasm, 0x00, 0x61, 0x73, 0x6d)
	wasm = append(wasm, 0x01, 0x00, 0x00, 0x00)

	wasm = appendSection(wasm, 0x01, b.buildTypeSection())
	wasm = appendSection(wasm, 0x02, b.buildImportSection())
	wasm = appendSection(wasm, 0x03, b.buildFuncSection())
	wasm = appendSection(wasm, 0x05, b.buildMemorySection())
	wasm = appendSection(wasm, 0x07, b.buildExportSection())
	wasm = appendSection(wasm, 0x0a, b.buildCodeSection())

	return wasm
}

func (b *moduleBuilder) buildTypeSection() []byte {
	var section []byte
	section = append(section, encodeULEB128(uint32(len(b.types)))...)

	for _, t := range b.types {
		section = append(section, 0x60)
		section = append(section, encodeULEB128(uint32(len(t.params)))...)
		for _, p := range t.params {
			section = append(section, valType(p))
		}
		section = append(section, encodeULEB128(uint32(len(t.results)))...)
		for _, r := range t.results {
			section = append(section, valType(r))
		}
	}

	return section
}

func (b *moduleBuilder) buildImportSection() []byte {
	var section []byte
	section = append(section, 0x01)
	section = append(section, encodeName(HostModule)...)
	section = append(section, encodeName(ResolveImport)...)
	section = append(section, 0x00, 0x00) // func, type 0
	return section
}

func (b *moduleBuilder) buildFuncSection() []byte {
	var section []byte
	section = append(section, encodeULEB128(uint32(len(b.funcs)))...)
	for _, f := range b.funcs {
		section = append(section, encodeULEB128(uint32(f.typ))...)
	}
	return section
}

func (b *moduleBuilder) buildMemorySection() []byte {
	// One page, not growable: the table view stays valid for the module's life.
	return []byte{0x01, 0x01, 0x01, 0x01}
}

func (b *moduleBuilder) buildExportSection() []byte {
	var section []byte
	section = append(section, encodeULEB128(uint32(len(b.funcs)+1))...)

	section = append(section, encodeName("memory")...)
	section = append(section, 0x02, 0x00)

	// Function index 0 is the import.
	for i, f := range b.funcs {
		section = append(section, encodeName(f.name)...)
		section = append(section, 0x00)
		section = append(section, encodeULEB128(uint32(i+1))...)
	}
	return section
}

func (b *moduleBuilder) buildCodeSection() []byte {
	var section []byte
	section = append(section, encodeULEB128(uint32(len(b.funcs)))...)

	for _, f := range b.funcs {
		var body []byte
		if f.locals > 0 {
			body = append(body, 0x01)
			body = append(body, encodeULEB128(f.locals)...)
			body = append(body, valType(i32))
		} else {
			body = append(body, 0x00)
		}
		body = append(body, f.body...)

		section = append(section, encodeULEB128(uint32(len(body)))...)
		section = append(section, body...)
	}
	return section
}
