//go:build linux

package pipeline

import (
	"math"

	"golang.org/x/sys/unix"

	"github.com/connected-data-lake/cdl/internal/cdlerr"
)

// Task accumulates the node sequence [sink₀, sink₁, src₁, sink₂, src₂, …,
// srcₙ]: Open seeds it with sink₀, each Map call appends one (sink, src)
// pair, and Finish appends the trailing srcₙ and builds the TaskContext.
type Task struct {
	nodes []Node
}

// Open seeds a Task with its first node.
func Open(n Node) *Task {
	return &Task{nodes: []Node{n}}
}

// Map appends one (sink, src) pair. sink acts as the src of the previous
// adjacent pair and the sink of this one, chaining fds through relay
// nodes.
func (t *Task) Map(sink, src Node) *Task {
	t.nodes = append(t.nodes, sink, src)
	return t
}

// Finish appends the final node and builds the transfer edges for every
// adjacent pair in the accumulated node sequence.
func (t *Task) Finish(src Node) (*TaskContext, error) {
	t.nodes = append(t.nodes, src)
	return build(t.nodes)
}

// transferEdge is one real fd-to-fd splice path, after pair expansion
// through an intermediate kernel pipe where neither endpoint was already
// a pipe.
type transferEdge struct {
	in, out  int
	hint     uint32
	ownedFDs []int // pipe fds allocated for this edge; closed on task exit
}

// TaskContext is a one-shot, built transfer ready to run.
type TaskContext struct {
	edges   []transferEdge
	nodeFDs []int // every fd supplied via Open/Map/Finish; closed on exit
}

func build(nodes []Node) (*TaskContext, error) {
	if len(nodes) < 2 {
		return nil, errInvalidInput("pipeline: task needs at least two nodes")
	}

	tc := &TaskContext{}
	for _, n := range nodes {
		tc.nodeFDs = append(tc.nodeFDs, n.FD)
	}

	for i := 0; i < len(nodes)-1; i++ {
		sink, src := nodes[i], nodes[i+1]
		if !sink.readable() {
			tc.closeAll()
			return nil, errInvalidInput("pipeline: sink is not readable")
		}
		if !src.writable() {
			tc.closeAll()
			return nil, errInvalidInput("pipeline: src is not writable")
		}
		if sink.Len >= 0 && src.truncatable() {
			if err := unix.Ftruncate(src.FD, sink.Len); err != nil {
				tc.closeAll()
				return nil, cdlerr.NewIoError("ftruncate", err)
			}
		}

		hint := hintFromLen(sink.Len)
		if sink.isPipe() || src.isPipe() {
			tc.edges = append(tc.edges, transferEdge{in: sink.FD, out: src.FD, hint: hint})
			continue
		}

		rx, tx, err := newSizedPipe(hint)
		if err != nil {
			tc.closeAll()
			return nil, err
		}
		tc.edges = append(tc.edges,
			transferEdge{in: sink.FD, out: tx, hint: hint, ownedFDs: []int{tx}},
			transferEdge{in: rx, out: src.FD, hint: hint, ownedFDs: []int{rx}},
		)
	}

	if len(tc.edges) > math.MaxUint32 {
		tc.closeAll()
		return nil, errInvalidInput("pipeline: too many transfer edges")
	}
	return tc, nil
}

func hintFromLen(l int64) uint32 {
	if l < 0 || l > math.MaxUint32 {
		return 0
	}
	return uint32(l)
}

func (tc *TaskContext) closeAll() {
	for _, e := range tc.edges {
		for _, fd := range e.ownedFDs {
			unix.Close(fd)
		}
	}
	for _, fd := range tc.nodeFDs {
		unix.Close(fd)
	}
}
