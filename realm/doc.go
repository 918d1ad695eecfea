// Package realm ties the pieces of one isolated execution context together:
// the subscriber table, the native channel registry, the script module and
// the gate that decides when native code may call into scripts.
//
// A realm starts active. WithoutCallIns closes the gate for the duration of a
// callback, which is how shutdown or collection windows are modelled:
//
//	r.WithoutCallIns(func() {
//		r.Channel("gc").Publish(stats) // dropped, no script code runs
//	})
//
// Snapshot serializes counts and channel names and leaves the realm active
// but unlinked; Script().Link() installs the bridge again. Restore builds a
// fresh realm from snapshot bytes.
package realm
