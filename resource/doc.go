// Package resource provides index-stable storage and optional handles for
// values shared across the native/scripted boundary.
//
// # Slots
//
// Slots maps dense integer indices to values. Indices are the stable identity
// of a stored value; the backing array may grow and reallocate, but an index
// keeps addressing the same value until it is dropped:
//
//	slots := resource.NewSlots[*Channel]()
//
//	// Store a value at a known index, growing as needed
//	slots.Set(7, ch)
//
//	// Retrieve by index
//	ch, ok := slots.Get(7)
//
//	// Drop the value, the index stays allocated
//	ch, ok = slots.Drop(7)
//
// # Refs
//
// Ref is an optional weak handle: an opaque reference plus an explicit valid
// flag. Holding a Ref does not own the referenced value; presence only says
// the value was alive when it was stored.
//
//	var fn resource.Ref[Function]
//	fn.Reset(publish)
//	if f, ok := fn.Get(); ok {
//	    f.Call(recv, msg)
//	}
//	fn.Clear()
//
// # Observers
//
// Register observers to track slot lifecycle events:
//
//	slots.AddObserver(resource.ObserverFunc(func(e resource.Event) {
//	    switch e.Type {
//	    case resource.EventCreated:
//	        log.Printf("slot %d filled", e.Index)
//	    case resource.EventDropped:
//	        log.Printf("slot %d dropped", e.Index)
//	    }
//	}))
//
// # Thread Safety
//
// Nothing in this package synchronizes. Values belong to a single realm,
// which runs on a single goroutine.
package resource
