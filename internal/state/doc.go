// Package state holds the aggregate tally of a volley run.
//
// A [State] is the single piece of mutable state shared between the worker
// pool, the signal monitor and the reporting path. All mutation goes through
// one mutex, so counters observed through [State.Snapshot] always satisfy
// success+fail+error == processed.
//
// The main components are:
//
//   - [State]: thread-safe counters with a kill switch and a done channel
//   - [Kind]: classification of a single job execution
//   - [Snapshot]: immutable copy of the counters used for rendering
package state
