// Package harness runs acceptance scenarios against a real hub.
//
// Each scenario gets a fresh in-memory store, a deterministic clock
// (timestamps 2000, 3000, ...) and sequential event ids (evt-1, evt-2, ...),
// so two runs of the same scenario produce byte-identical traces.
//
// # Scenario Format
//
//	name: follow_unfollow
//	description: "An unfollow stops ordinary events"
//	hub: hub          # optional, default "hub"
//	owner: owner      # optional, default "owner"
//	steps:
//	  - name: hub follows bob
//	    from: owner
//	    event: { kind: "3", p: [bob] }
//	    expect: { decision: inserted, branch: self_follow, recipients: [bob] }
//	  - name: notes by bob
//	    fetch: [{ kinds: ["1"], authors: [bob] }]
//	    expect: { ids: [evt-3] }
//	assertions:
//	  - type: graph
//	    follow_list: [bob]
//	    followers: []
//	  - type: trace_count
//	    decision: dropped
//	    count: 1
//
// # Trace
//
// Every step appends one TraceEvent. Event steps record the decision,
// branch, stored id, timestamp and fan-out recipients; fetch steps record
// the ids returned, in order. The trace is what golden files capture.
package harness
