// Package executor builds the external invocation for each chunk of a node
// instance, launches and supervises the external process, persists the
// chunk's status record, and handles whole-subtree cancellation.
package executor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vk/pipeforge/internal/node"
	"github.com/vk/pipeforge/internal/sizing"
)

// State is the lifecycle state of one chunk. Every terminal state is final:
// the first terminal write wins.
type State string

const (
	StatePending State = "PENDING"
	StateRunning State = "RUNNING"
	StateSuccess State = "SUCCESS"
	StateError   State = "ERROR"
	StateStopped State = "STOPPED"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateError || s == StateStopped
}

// Status is the persisted per-chunk record. It outlives the in-memory
// process handle, so a crash still leaves the attempted invocation and the
// last known state on disk.
type Status struct {
	NodeType    string `json:"nodeType"`
	Iteration   int    `json:"iteration"`
	State       State  `json:"status"`
	CommandLine string `json:"commandLine"`
	ReturnCode  int    `json:"returnCode"`
}

// Chunk is one externally executable unit of a node instance's work, bound
// to exactly one range.
type Chunk struct {
	node *node.Node
	rng  sizing.Range
	dir  string

	mu     sync.Mutex
	status Status
	proc   *os.Process
	held   bool
}

// NewChunk binds a node instance and one of its ranges to the instance's
// internal folder under the given cache root.
func NewChunk(n *node.Node, r sizing.Range, cacheRoot string) *Chunk {
	return &Chunk{
		node: n,
		rng:  r,
		dir:  n.InternalFolder(cacheRoot),
		status: Status{
			NodeType:  n.Type(),
			Iteration: r.Iteration,
			State:     StatePending,
		},
	}
}

// Node returns the owning node instance.
func (c *Chunk) Node() *node.Node { return c.node }

// Range returns the chunk's workload slice.
func (c *Chunk) Range() sizing.Range { return c.rng }

// Dir returns the chunk's output directory.
func (c *Chunk) Dir() string { return c.dir }

// LogFile is the plain-text file holding the interleaved stdout/stderr of
// the external process.
func (c *Chunk) LogFile() string {
	return filepath.Join(c.dir, fmt.Sprintf("%d.log", c.rng.Iteration))
}

// StatusFile is the persisted status record's path.
func (c *Chunk) StatusFile() string {
	return filepath.Join(c.dir, fmt.Sprintf("status.%d.json", c.rng.Iteration))
}

// State returns the chunk's current lifecycle state.
func (c *Chunk) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.State
}

// Status returns a copy of the chunk's status record.
func (c *Chunk) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Process returns the live process handle, nil once the chunk is terminal.
func (c *Chunk) Process() *os.Process {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proc
}

// setCommandLine records the resolved invocation before launch, so an
// abnormal termination still shows what was attempted.
func (c *Chunk) setCommandLine(cmd string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.CommandLine = cmd
}

// attach transitions PENDING to RUNNING and stores the live handle. It
// fails when a terminal state was recorded first (a stop racing the
// launch).
func (c *Chunk) attach(p *os.Process) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.State != StatePending {
		return false
	}
	c.status.State = StateRunning
	c.proc = p
	c.held = true
	return true
}

// finish records the exit code and transitions to SUCCESS or ERROR, unless
// a terminal state was already recorded.
func (c *Chunk) finish(returnCode int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.State.Terminal() {
		return false
	}
	c.status.ReturnCode = returnCode
	if returnCode == 0 {
		c.status.State = StateSuccess
	} else {
		c.status.State = StateError
	}
	return true
}

// markStopped transitions to STOPPED unless SUCCESS or ERROR won the race.
func (c *Chunk) markStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.State.Terminal() {
		return false
	}
	c.status.State = StateStopped
	return true
}

// clearProcess drops the live handle. It runs as the final, unconditional
// step of every execution path so no stale handle survives for a later
// stop or status query.
func (c *Chunk) clearProcess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.proc = nil
}

// liveState snapshots the handle-related fields for stopProcess.
func (c *Chunk) liveState() (proc *os.Process, everHeld bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proc, c.held
}

// SaveStatus persists the status record with a replace-on-write so a
// concurrent reader never observes a partially written record.
func (c *Chunk) SaveStatus() error {
	c.mu.Lock()
	record := c.status
	c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating chunk folder: %w", err)
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding status record: %w", err)
	}
	tmp, err := os.CreateTemp(c.dir, ".status-*")
	if err != nil {
		return fmt.Errorf("writing status record: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing status record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing status record: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.StatusFile()); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing status record: %w", err)
	}
	return nil
}

// LoadStatus reads a previously persisted status record.
func LoadStatus(path string) (Status, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Status{}, err
	}
	var record Status
	if err := json.Unmarshal(data, &record); err != nil {
		return Status{}, fmt.Errorf("decoding status record %s: %w", path, err)
	}
	return record, nil
}
