// Package categories builds and maintains live discovery lists.
//
// A request resolves its display mode, then Resolver picks a payload from
// the preload store or the upstream API, Assembler turns it into a
// domain.CategoryList bound to a Merger, and Bridge registers the list with
// tracking. Route.Model runs those steps in order.
package categories
