// Package program implements the sum state transition: the single operation
// this program supports.
//
// A transition decodes the incoming record from the instruction payload,
// checks that the first account is owned by the executing authority, decodes
// the account's current record, overwrites a and b with the incoming values,
// recomputes total = a + b, and encodes the result back into the account.
//
// ORDERING:
//
//  1. Decode payload            -> DECODE_PAYLOAD
//  2. Owner == authority        -> WRONG_OWNER
//  3. Decode account state      -> DECODE_ACCOUNT_STATE
//  4. Acquire exclusive borrow  -> ACCOUNT_NOT_WRITABLE / ACCOUNT_BORROWED
//  5. Compute, encode, copy into the account buffer
//
// The account buffer is written only in step 5, after every check has
// passed, and the write is a single fixed-size copy that cannot fail. A
// rejected transition therefore leaves the buffer byte-identical.
//
// total is recomputed from the new a and b on every call; it is not a running
// accumulator. a + b wraps modulo 2^32.
//
// The Handler is stateless. Runtimes hold a reference to it and call Process
// once per instruction; nothing is retained between calls.
package program
