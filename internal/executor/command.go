package executor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/google/shlex"

	"github.com/vk/pipeforge/internal/cgroup"
	"github.com/vk/pipeforge/internal/ctxlog"
	"github.com/vk/pipeforge/internal/node"
)

// Environment contract for versioned runtime relocation: launcherEnvVar
// names the launcher command, and activeVersionVar (keyed by the
// upper-cased package name) must start with the declared package version
// for the relocation prefix to be skipped.
const (
	launcherEnvVar       = "RUNTIME_ENV"
	activeVersionVarTmpl = "RUNTIME_%s_VERSION"
)

// limitFlags caches the quota-derived command suffix. Discovery runs at
// most once per process lifetime behind the once guard and is shared by
// every chunk of every instance.
type limitFlags struct {
	once   sync.Once
	args   string
	memory func() int64
	cpus   func() int
}

func (l *limitFlags) suffix() string {
	l.once.Do(func() {
		if mem := l.memory(); mem > 0 {
			l.args += fmt.Sprintf(" --maxMemory=%d", mem)
		}
		if cores := l.cpus(); cores > 0 {
			l.args += fmt.Sprintf(" --maxCores=%d", cores)
		}
	})
	return l.args
}

var sharedLimits = &limitFlags{memory: cgroup.MemoryLimit, cpus: cgroup.CPUCount}

// CommandRunner executes chunks by invoking the node type's external
// command template.
type CommandRunner struct {
	// CacheRoot is the root of the cache-keyed output directories.
	CacheRoot string

	// Env resolves environment variables; nil means os.Getenv. Injected
	// in tests.
	Env func(string) string

	// limits overrides the shared quota discovery in tests.
	limits *limitFlags
}

func (r *CommandRunner) getenv(key string) string {
	if r.Env != nil {
		return r.Env(key)
	}
	return os.Getenv(key)
}

func (r *CommandRunner) limitSuffix() string {
	if r.limits != nil {
		return r.limits.suffix()
	}
	return sharedLimits.suffix()
}

// BuildCommandLine resolves the full external invocation for one chunk:
// optional runtime-relocation prefix, the filled command template, the
// per-chunk range suffix when the node is parallelized with a size above
// one, and the quota-derived limit flags when the type requests them.
func (r *CommandRunner) BuildCommandLine(c *Chunk) string {
	desc := c.Node().Desc()

	prefix := ""
	if launcher := r.getenv(launcherEnvVar); launcher != "" && desc.PackageVersion != "" {
		activeVar := fmt.Sprintf(activeVersionVarTmpl, strings.ToUpper(desc.PackageName))
		if !strings.HasPrefix(r.getenv(activeVar), desc.PackageVersion) {
			prefix = launcher + " " + desc.PackageFullName() + " -- "
		}
	}

	suffix := ""
	if desc.IsParallelized() && c.Node().Size() > 1 {
		suffix = " " + node.Expand(desc.CommandLineRange, c.Range().Vars())
	}
	if desc.LimitFlags {
		suffix += r.limitSuffix()
	}

	return prefix + node.Expand(desc.CommandLine, c.Node().CommandVars(r.CacheRoot)) + suffix
}

// ProcessChunk runs the chunk's external process to completion: the log
// file is truncated, the resolved command line is persisted before launch,
// both output streams go to the log, and the exit code is recorded. A
// non-zero exit surfaces as a *ProcessExecutionError carrying the full log
// text. The live handle is cleared unconditionally on every path.
func (r *CommandRunner) ProcessChunk(ctx context.Context, c *Chunk) error {
	logger := ctxlog.FromContext(ctx).With("node", c.Node().Name(), "iteration", c.Range().Iteration)
	defer c.clearProcess()

	if err := os.MkdirAll(c.Dir(), 0o755); err != nil {
		return fmt.Errorf("creating chunk folder: %w", err)
	}
	logFile, err := os.Create(c.LogFile())
	if err != nil {
		return fmt.Errorf("opening chunk log: %w", err)
	}
	defer logFile.Close()

	cmdLine := r.BuildCommandLine(c)
	c.setCommandLine(cmdLine)
	if err := c.SaveStatus(); err != nil {
		return err
	}
	logger.Info("▶️ Launching chunk", "commandLine", cmdLine, "logFile", c.LogFile())

	argv, err := shlex.Split(cmdLine)
	if err != nil {
		return fmt.Errorf("tokenizing command line: %w", err)
	}
	if len(argv) == 0 {
		return fmt.Errorf("node %q resolved to an empty command line", c.Node().Name())
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launching %q: %w", argv[0], err)
	}
	if !c.attach(cmd.Process) {
		// A stop won the race before the transition to RUNNING.
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		logger.Warn("Chunk was stopped before its process attached.")
		return nil
	}

	_ = cmd.Wait()
	returnCode := cmd.ProcessState.ExitCode()

	if c.finish(returnCode) {
		if err := c.SaveStatus(); err != nil {
			return err
		}
	}

	if returnCode != 0 {
		if c.State() == StateStopped {
			logger.Info("🛑 Chunk stopped", "returnCode", returnCode)
			return nil
		}
		logText, readErr := os.ReadFile(c.LogFile())
		if readErr != nil {
			logText = []byte(fmt.Sprintf("<log unavailable: %v>", readErr))
		}
		logger.Error("❌ Chunk failed", "returnCode", returnCode)
		return &ProcessExecutionError{Node: c.Node().Name(), ReturnCode: returnCode, Log: string(logText)}
	}

	logger.Info("✅ Chunk finished")
	return nil
}
