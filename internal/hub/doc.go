// Package hub assembles a running hub: the event store, the acceptance
// engine with its fan-out dispatcher, and the filter evaluator. Hub
// implements transport.Handler for the Event, FetchEvents and Info
// actions.
//
// Writes go through the engine's single run loop. Queries and graph
// reads go straight to the store.
package hub
