// Package diagchan provides a low-overhead diagnostics channel core shared by
// a native Go layer and a scripted layer running in the same process.
//
// Native code publishes diagnostic events through named channels. Whether
// anybody listens is answered by a single read from a shared subscriber
// table, so publishing to a channel without subscribers costs one array load
// and one branch. The scripted layer owns subscription bookkeeping and keeps
// the shared table up to date.
//
// # Architecture Overview
//
//	diagchan/          Root package with scripted-layer value interfaces
//	├── subscriber/    Shared subscriber-count table
//	├── channel/       Channel registry, linking protocol, publish path
//	├── resource/      Index-stable slot arena and optional handles
//	├── script/        Go implementation of the scripted layer
//	├── guest/         wazero guest whose linear memory holds the table
//	├── realm/         Realm-scoped state, lifecycle, snapshot/restore
//	└── errors/        Structured error types
//
// # Quick Start
//
//	rlm := realm.New()
//	defer rlm.Close()
//
//	// scripted side
//	rlm.Script().Subscribe("net", func(msg any, name string) {
//	    fmt.Println(name, msg)
//	})
//	if err := rlm.Script().Link(); err != nil {
//	    log.Fatal(err)
//	}
//
//	// native side
//	rlm.Channel("net").Publish(map[string]any{"evt": 1})
//
// # Linking
//
// Native channels may be created before the scripted layer is ready. They
// stay unlinked until the scripted layer installs a bridge, a callback that
// maps a channel name to its scripted counterpart. Installing the bridge
// links every existing channel; channels fetched later are linked on first
// access.
//
// # Thread Safety
//
// A realm is single threaded. Native and scripted code interleave through
// nested calls on one goroutine; nothing in this module takes locks on the
// publish path. Callers that drive a realm from several goroutines must
// funnel the work through one owner goroutine.
//
// # Capacity
//
// At most MaxChannels distinct channel names may exist per realm. Allocating
// one more is a programming error and panics.
package diagchan
