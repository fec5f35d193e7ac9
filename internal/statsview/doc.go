// Package statsview is an optional HTTP server with runtime statistics for
// the runner. It is only built with the statsview build tag:
//
//	go build -tags statsview ./cmd/cpurunner
//
// After Launch, graphs are served at localhost:12600/debug/statsview and
// the standard pprof pages at localhost:12600/debug/pprof/.
package statsview
