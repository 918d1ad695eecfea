// Package guest runs a small WebAssembly module on wazero that plays the
// scripted side of the subscriber table.
//
// The module is assembled in code. Its single memory page starts with the
// subscriber table, so the native layer reads counts straight out of guest
// memory:
//
//	g, err := guest.New(ctx)
//	reg := channel.NewRegistry(g.Table())
//	g.Bind(reg)
//	idx, _ := g.Resolve(ctx, "http.request") // calls back into reg
//	g.Subscribe(ctx, idx)                    // reg.Channel(...).HasSubscribers() == true
//
// Name resolution goes through the host module "diagnostics_channel", whose
// get_or_create_channel_index import receives the name as a pointer and a
// length into guest memory.
package guest
