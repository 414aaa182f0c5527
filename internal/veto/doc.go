// Package veto implements the build-veto decision engine.
//
// An Engine composes one trigger provider and one buildstatus provider. For
// each (since, now] window it checks that every trigger change is already
// reflected by the buildstatus record. The engine never asks for a build: it
// answers either "nothing to build" or "inconsistent", and the latter carries
// the timestamps an operator needs to diagnose status-record lag.
//
// Evaluate returns a typed Decision. For callers that only understand the
// change.Provider contract, Modifications reports an inconsistency as an
// *InconsistencyError instead.
package veto
