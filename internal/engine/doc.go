// Package engine implements the hub's acceptance engine.
//
// The engine is the single writer of the hub's event collection. It
// decides, for every inbound event, whether to store it, toggle an
// existing entry off, process an unfollow, or drop it silently, and it
// hands accepted events to the fan-out dispatcher.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Submissions are queued FIFO and processed one at a time by Run, each to
// completion (store mutation plus fan-out hand-off) before the next. This
// guarantees that two accept/toggle decisions for the hub never interleave.
//
//	Submit → queue → Run → accept → store
//	                          ↘ Dispatcher → workers → Deliverer
//
// Decision order (first match wins):
//  1. self-authored: re-stamp as the hub, then follow / reaction toggle / broadcast
//  2. remote follow: accept, or unfollow when the hub is not in p
//  3. remote reaction with content, e and p: toggle
//  4. remote reply note with content, e and p: toggle
//  5. remote author the hub follows: insert
//  6. anything else: drop, never reported to the publisher
//
// Fan-out is fire-and-forget. Delivery failures are logged and counted,
// never retried and never surfaced to the publisher.
//
// Reads (Graph) go straight to the store and may run on any goroutine.
package engine
