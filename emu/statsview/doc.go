// Package statsview serves runtime statistics over HTTP. It's only available
// when built with the statsview build tag, see Available.
//
// Once launched, graphs are viewable at:
//
//	localhost:12600/debug/statsview
//
// And the standard pprof endpoints at:
//
//	localhost:12600/debug/pprof/
package statsview
