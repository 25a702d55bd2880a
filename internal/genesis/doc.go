// Package genesis loads the initial account set of a ledger from CUE files.
//
// A genesis file is unified with an embedded schema before decoding, so
// out-of-range fields and unknown keys are rejected with a file position:
//
//	accounts: [
//		{name: "counter", record: {a: 0, b: 0}},
//		{name: "raw", owner: "system", data: "000000000000000000000000"},
//	]
//
// Owners are "program" (the default, the ledger's program ID), "system",
// or a base58 key. Account keys are base58 or derived from the program ID,
// name, and owner with solana.CreateWithSeed.
package genesis
