// Package subscriber implements the subscriber table shared by the native and
// scripted layers of a realm.
//
// The table is a fixed array of diagchan.MaxChannels unsigned 32-bit
// counters stored little-endian, one per channel index. The scripted layer
// increments a counter on subscribe and decrements it on unsubscribe; native
// code only reads. A zero counter means nobody listens and publishing can be
// skipped.
//
// The backing bytes are either owned by the table or aliased from memory the
// scripted layer addresses directly, such as a wasm guest's linear memory.
// Either way Serialize and Deserialize copy the raw bytes verbatim so counts
// survive a realm snapshot.
package subscriber
