// Package core provides the file ingest and conversion pipeline.
//
// This package holds all domain logic independent of HTTP. Web handlers
// and tests drive it through [Service].
//
// # Pipeline
//
// Each uploaded file runs through the same pass, independently of every
// other file:
//
//  1. [Decode] reads CSV or XLSX by extension into a classified [Table]
//  2. Cleaning operations ([Deduplicate], [FillMissing]) are replayed in the
//     order the user applied them
//  3. [Project] keeps the selected columns
//  4. [Visualize] charts the third numeric column, or warns
//  5. [Encode] writes CSV or XLSX for download
//
// A pass is fully determined by the file's [FileSession]. Nothing derived
// from a pass is cached; every request replays it from the uploaded bytes.
//
// # Sessions
//
// A [Session] is one browser's set of files, held in a [SessionStore] and
// dropped after an idle TTL by [Service.StartSessionSweeper]. Session state
// is guarded by a per-session mutex. Passes across sessions are bounded by a
// [PassLimiter].
//
// # Error Handling
//
// Errors local to one file never affect its siblings. Typed errors
// ([UnsupportedFormatError], [DecodeError], [InvalidColumnError],
// [EncodeError]) are mapped to user-facing text by [MapError]; see
// error_messages.go for the code reference.
package core
