package executor

import (
	"errors"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/vk/pipeforge/internal/executor/proctree"
)

// StopProcess terminates the chunk's process and every descendant. The same
// logical node may be instantiated several times while at most one chunk
// holds the real subprocess, so a chunk that never held a handle is a
// no-op. A process that is already gone counts as success: that is a race
// with natural completion, the only condition recovered silently.
func (r *CommandRunner) StopProcess(c *Chunk) error {
	proc, everHeld := c.liveState()
	if !everHeld {
		return nil
	}
	if !c.markStopped() {
		// SUCCESS or ERROR was recorded first: nothing left to stop.
		return nil
	}

	if proc != nil {
		if err := terminateTree(proc.Pid); err != nil {
			return err
		}
	}
	return c.SaveStatus()
}

// terminateTree signals the whole process subtree, children first.
func terminateTree(pid int) error {
	root, err := process.NewProcess(int32(pid))
	if err != nil {
		// Already gone.
		return nil
	}
	targets := append(proctree.Descendants(root), root)
	for _, target := range targets {
		if err := target.Terminate(); err != nil && !errors.Is(err, process.ErrorProcessNotRunning) {
			if running, _ := target.IsRunning(); running {
				return err
			}
		}
	}
	return nil
}
