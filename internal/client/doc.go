// Package client is the caller-facing side of a hub.
//
// It builds filter sets from loose intent (an exact id, a category word,
// or free text), sends them to the hub and returns a tagged Result. When
// the hub cannot be reached the client evaluates the same filters over
// its local cache with the same filter.Evaluate the hub uses, and says so
// in Result.Status; it never passes the attempted filters off as data.
package client
