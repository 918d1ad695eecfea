// Package channel implements the native side of diagnostics channels: the
// per-realm registry that maps names to indices, the channel objects native
// code publishes through, and the protocol that links each channel to its
// counterpart in the scripted layer.
//
// # Registry
//
// A Registry hands out stable indices into the shared subscriber table:
//
//	reg := channel.NewRegistry(subscriber.NewTable())
//	idx := reg.ChannelIndex("http.request") // same index on every call
//
// At most diagchan.MaxChannels names fit in a registry. Asking for one more
// panics with a capacity *errors.Error.
//
// # Linking
//
// Channels are created lazily by Registry.Channel. A channel is linked once
// the scripted layer installs a bridge through InstallBridge; channels that
// already exist are linked right away, later ones on first access. A failed
// link attempt is retried the next time the channel is fetched.
//
// # Publishing
//
// Channel.Publish returns after a single table read when nobody listens.
// Otherwise it checks the link, asks the realm's Gate whether calling into the
// scripted layer is allowed, resolves the counterpart's publish member on
// first use and calls it. No failure on this path reaches the caller.
//
// # Snapshots
//
// PrepareForSerialization captures subscriber counts and channel names and
// discards everything transient: the bridge, every link and the channel
// objects themselves. Restore brings counts and names back; channels and
// links are rebuilt on next access.
package channel
