// Package harness runs ranking scenarios end to end against a real engine.
//
// A scenario starts from a list, drives a ranking session step by step
// (answers, undo, concurrent writes, finalize, conflict recovery) and checks
// the outcome. Every run is rendered as a text trace and compared to a
// golden file, so a change in question order, key assignment or conflict
// handling shows up as a diff.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: insert_middle
//	description: "What this scenario validates"
//	list: wishes                # optional, defaults to "wishes"
//	ordering:                   # optional engine overrides
//	  step: "1024"
//	  epsilon: "0.000000001"
//	  auto_rebalance: false
//	setup:                      # items top to bottom
//	  - {title: A, key: "3072"}
//	flow:
//	  - do: begin
//	    title: N
//	    expect: {state: comparing, ask: A}
//	  - do: answer
//	    choice: existing        # or new
//	  - do: finalize
//	    expect: {key: "1536"}
//	assertions:
//	  - type: final_order
//	    titles: [A, N]
//
// Flow actions are begin, answer, undo, cancel, finalize, restart, manual,
// create, move, delete and rebalance. create, move and delete act on the
// list directly and stand in for a concurrent writer while a session is
// open.
//
// # Assertion Types
//
//   - final_order: live titles from top to bottom
//   - final_key: the key of one live item
//   - trace_count: how many times an action ran
//   - trace_contains: an action produced a matching outcome
//
// # Deterministic Testing
//
// Each run uses a fresh in-memory SQLite database, a
// testutil.DeterministicClock and testutil.SequentialIDs, so ids, keys and
// traces are identical across runs.
package harness
