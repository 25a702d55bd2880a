// Package harness runs scripted scenarios against a fresh ledger.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: sum_overwrite
//	description: "Each call overwrites a and b and recomputes total"
//	accounts:
//	  - name: counter
//	    record: {a: 0, b: 0, total: 0}
//	  - name: foreign
//	    owner: mallory
//	steps:
//	  - accounts: [counter]
//	    payload: {a: 1, b: 0, total: 0}
//	    expect:
//	      status: OK
//	      record: {a: 1, b: 0, total: 1}
//	  - accounts: [foreign]
//	    payload_hex: "0100000002000000"
//	    expect: {status: DECODE_PAYLOAD}
//	assertions:
//	  - type: final_record
//	    account: counter
//	    record: {a: 1, b: 0, total: 1}
//	  - type: unchanged
//	    account: foreign
//
// Owners are "program" (the default), "system", or any other label, which
// maps to a stable key. Steps without an expect clause must end OK.
//
// # Assertion Types
//
//   - final_record: the account's final data decodes to the given record
//   - unchanged: the account's final data equals its initial bytes
//   - status_count: exactly count steps ended with status
//   - history_consistent: every account's write history chains into its data
//
// # Deterministic Testing
//
// Every run uses an in-memory SQLite store, testutil.DeterministicClock,
// and numbered batch tokens, so a scenario always produces the same trace.
// Traces can be compared against golden files with RunWithGolden.
package harness
