// Package zsplice moves or duplicates bytes directly between I/O endpoints
// without staging them in a caller-visible buffer. Splice consumes from the
// source, Tee copies between two pipes leaving the source readable, and at
// least one side of a splice must be pipe-backed. Blocking behavior is
// decided jointly by the per-call flag and both endpoints' own open modes.
package zsplice
