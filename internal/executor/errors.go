package executor

import "fmt"

// ProcessExecutionError reports an external process that exited non-zero.
// It carries the complete captured log so the failure is diagnosable
// without re-running the chunk.
type ProcessExecutionError struct {
	Node       string
	ReturnCode int
	Log        string
}

func (e *ProcessExecutionError) Error() string {
	return fmt.Sprintf("error on node %q (exit code %d):\nLog:\n%s", e.Node, e.ReturnCode, e.Log)
}

// UnimplementedOperationError reports an execution operation invoked on a
// node type that does not supply it.
type UnimplementedOperationError struct {
	Node string
	Op   string
}

func (e *UnimplementedOperationError) Error() string {
	return fmt.Sprintf("no %s implementation on node %q", e.Op, e.Node)
}
