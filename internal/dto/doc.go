// Package dto provides the self-describing typed value model used for
// inter-process data exchange: AnyType (a schema) and AnyValue (a value
// conforming to a schema).
//
// This package holds the model only. Codecs live in sibling packages
// (bincodec, ctype, dtojson) and walk trees through the visit package;
// dto imports nothing internal.
//
// Key design constraints:
//   - Trees are strictly owned: inserting a value stores a deep copy, so no
//     subtree is ever shared between two parents
//   - ConvertFrom never changes the receiver's type
//   - Every failure is reported as a *Error carrying one of four kinds
//     (InvalidOperation, InvalidConversion, Parse, Serialize)
//   - Nothing here is safe for concurrent mutation; read-only sharing is fine
package dto
