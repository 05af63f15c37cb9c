// Package flow composes units of solving work into workflows.
//
// A Runnable consumes a State and produces a new State. Runnables compose
// sequentially with Sequence, concurrently with Race and Parallel, reduce a
// candidate set with ArgMinFold, and repeat with NewLoop. Every composite is
// itself a Runnable, so workflows nest to any depth.
//
// States are value-like: a Runnable never mutates the State it receives. The
// problem model is shared read-only between concurrent branches; everything
// else a branch may change is copied by State.Clone before the branch starts.
//
// Cancellation is cooperative and carried by context.Context. Stop cancels
// every execution of a Runnable that is in flight; leaves are expected to
// check ctx between units of work and return their best result so far.
package flow
