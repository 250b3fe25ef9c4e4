// Package transport carries hub messages between parties.
//
// A Message names a target identity, an action and a JSON payload. The
// hub understands three actions: Event (publish), FetchEvents (query) and
// Info (follow graph). MemoryNetwork routes messages in process; the HTTP
// server and client carry them as JSON over POST /v1/messages.
package transport
