// Package script is the scripted half of diagnostics channels: named channels
// with subscriber lists, context stores and tracing channels, written against
// the same subscriber table the native registry reads.
//
// Every subscriber or bound store adds one to the channel's counter in the
// table and every removal takes one away, so native publishers can tell from
// a single read whether anybody listens:
//
//	mod := script.New(reg)
//	sub := mod.Subscribe("http.request", func(msg any, name string) {
//		fmt.Println(name, msg)
//	})
//	defer mod.Unsubscribe(sub)
//
// Module.Link installs the module as the registry's bridge. From then on each
// native channel resolves to the script channel of the same name and native
// publishes are delivered to its subscribers.
//
// Tracing channels group the start, end, asyncEnd and error channels of one
// traced operation:
//
//	tc := mod.TracingChannel("db.query")
//	res, err := tc.TraceSync(ctx, &script.TraceContext{Data: q}, run)
//
// A Module is bound to one realm and is not safe for concurrent use.
package script
