// Package record defines the fixed binary record shared by instruction
// payloads and account storage.
//
// # Layout
//
// A record is exactly 12 bytes: three consecutive little-endian uint32
// values, in order a, b, total. There is no padding and no version tag; the
// layout is the storage contract for every account ever written, so any
// change to it breaks existing accounts.
//
//	offset  size  field
//	0       4     a
//	4       4     b
//	8       4     total
//
// Encoding goes through the borsh codec from github.com/gagliardetto/binary,
// which matches the layout of the on-chain program that first defined it.
//
// Decoding is strict: input must be exactly Size bytes. Short input and
// trailing bytes are both rejected.
package record
