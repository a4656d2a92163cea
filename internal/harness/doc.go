// Package harness runs dataset resolution scenarios.
//
// A scenario declares record types in CUE, then a sequence of steps against
// a fresh in-memory SQLite store: dataset creation, saves, deletes, loads,
// lookup list queries, dataset details and version histories. Each step may
// carry an expectation; assertions check the full trace afterwards.
//
// # Scenario Format
//
//	name: delete_marker_hides_import
//	description: "A delete in an importing dataset hides the imported record"
//	schema: |
//	  type: Quote: {
//	    key: ["Ticker"]
//	    fields: { Ticker: "string", Price: "double" }
//	  }
//	steps:
//	  - op: create
//	    name: A
//	  - op: create
//	    name: B
//	    imports: [A]
//	  - op: save
//	    as: v1
//	    type: Quote
//	    dataset: A
//	    record: { Ticker: IBM, Price: 1.5 }
//	  - op: delete
//	    type: Quote
//	    dataset: B
//	    key: IBM
//	  - op: load
//	    type: Quote
//	    dataset: B
//	    key: IBM
//	    expect: { "null": true }
//	assertions:
//	  - type: trace_count
//	    op: save
//	    count: 1
//
// # Labels
//
// Ids never appear in traces. Datasets are named by their label (the
// dataset name unless "as" is given), record versions by their "as" label
// or v<seq>, and the root dataset by "root". Cutoffs and id references in
// steps use the same labels; a 40-character temporal id is accepted too.
//
// # Deterministic Testing
//
// Every scenario runs with a fixed-identity id generator on a stepping
// clock, so traces are identical across runs and can be compared with
// golden files via RunWithGolden.
package harness
