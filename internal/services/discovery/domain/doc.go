// Package domain defines the discovery list model: display modes, upstream
// payload shapes, and the live category list that incremental merges mutate
// in place.
//
// The package is transport-free. Resolution, assembly, tracking and merging
// are orchestrated by the categories package.
package domain
