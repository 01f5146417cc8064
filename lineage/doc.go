// Package lineage executes many independent evolution lineages concurrently.
//
// Organisms are partitioned into batches of MaxConcurrent; every lineage in a
// batch runs on its own goroutine with a private organism state and a private
// event channel, racing a per-lineage timeout. Lineages share no mutable
// state: progress reaches the caller only as forwarded events and collected
// LineageResults, so a crash or unbounded loop in one lineage cannot corrupt
// another. A hung lineage settles as a timeout outcome and is abandoned
// best-effort; the batch never blocks on it.
package lineage
