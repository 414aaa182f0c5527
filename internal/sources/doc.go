// Package sources implements the change providers buildveto can be
// configured with and the registry that binds configuration blocks to them.
//
// Leaf providers detect changes (git, filesystem, buildstatus, redis) or
// synthesise them (always, never, fakeuser). The compound provider unions
// its children, and the veto type nests a veto.Engine. Legacy type names
// resolve through registry aliases rather than separate types.
package sources
