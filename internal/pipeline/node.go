//go:build linux

// Package pipeline implements the zero-copy transfer pipeline: chains of
// local file descriptors spliced together through kernel pipes, modeled
// on original_source/contrib/cdl-ip-linux-io-uring/src/task.rs. Go has no
// corpus-grounded io_uring binding (none of the retrieved example repos
// import one), so edges are driven with direct splice(2) calls via
// golang.org/x/sys/unix instead of a submission-queue batch — see
// DESIGN.md for the full justification. The Node/Task/TaskContext shapes
// and the pipe-sizing rule are kept intact.
package pipeline

import "github.com/connected-data-lake/cdl/internal/cdlerr"

// NodeFlags is a bitset describing one endpoint of a transfer edge.
type NodeFlags uint8

const (
	ModeRead NodeFlags = 1 << iota
	ModeWrite
	FeatPipe
	FeatSized
	FeatTruncate
)

func (f NodeFlags) has(bit NodeFlags) bool { return f&bit != 0 }

// Node is one endpoint: a local file descriptor plus its offset, length,
// and capability flags. Offset and length use -1 for "unspecified", the
// same convention original_source's Local variant uses for signed 64-bit
// fields.
type Node struct {
	FD     int
	Offset int64
	Len    int64
	Flags  NodeFlags
}

func (n Node) readable() bool  { return n.Flags.has(ModeRead) }
func (n Node) writable() bool  { return n.Flags.has(ModeWrite) }
func (n Node) isPipe() bool    { return n.Flags.has(FeatPipe) }
func (n Node) sized() bool     { return n.Flags.has(FeatSized) }
func (n Node) truncatable() bool { return n.Flags.has(FeatTruncate) }

// errInvalidInput mirrors the taxonomy's ConfigError use for a malformed
// edge: a sink that cannot be read from, or a source that cannot be
// written to.
func errInvalidInput(msg string) error {
	return cdlerr.NewConfigError(msg, nil)
}
