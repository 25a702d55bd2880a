// Package runtime is the execution harness around programs.
//
// A Runtime owns a store, a logical clock, and a registry of programs keyed
// by program ID. Invoke loads the instruction's accounts from the store,
// wraps them in account handles, runs the program under its own ID as the
// authority, and records the outcome:
//
//   - every invocation is appended to the transition log with its status
//   - account data is persisted only when the program reports OK, and only
//     for writable accounts whose bytes changed
//   - log row and account writes commit in one SQL transaction
//
// Invocations are serialized by a mutex, so a program never observes two
// concurrent calls against the same account.
//
// Program rejections are not Go errors: they are reported in
// Receipt.Status. Invoke returns an error only when the runtime itself
// cannot proceed (unknown program, unknown account, storage failure).
package runtime
