// Package change defines the change record and the provider contract shared by
// every change source in buildveto.
//
// A Provider reports the modifications it observed inside a (since, now]
// window. An empty result is the no-change signal; errors are reserved for
// failures to look. Providers that expose side-channel metadata keep it in a
// Properties accumulator, which is drained on read.
package change
