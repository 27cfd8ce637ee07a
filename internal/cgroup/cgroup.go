// Package cgroup probes the hosting container's resource quota. The engine
// consumes it as an opaque two-value query: a non-positive result means no
// limit could be discovered and no limit flag is emitted.
package cgroup

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// root is the cgroup filesystem mount point, overridable in tests.
var root = "/sys/fs/cgroup"

// MemoryLimit returns the memory quota in bytes, or 0 when the limit is
// unknown or unbounded.
func MemoryLimit() int64 {
	// cgroup v2
	if raw, err := os.ReadFile(filepath.Join(root, "memory.max")); err == nil {
		return parseMemory(string(raw))
	}
	// cgroup v1
	if raw, err := os.ReadFile(filepath.Join(root, "memory", "memory.limit_in_bytes")); err == nil {
		return parseMemory(string(raw))
	}
	return 0
}

// CPUCount returns the number of cores granted by the cpu quota, rounded
// up, or 0 when the quota is unknown or unbounded.
func CPUCount() int {
	// cgroup v2: "max 100000" or "<quota> <period>"
	if raw, err := os.ReadFile(filepath.Join(root, "cpu.max")); err == nil {
		fields := strings.Fields(string(raw))
		if len(fields) == 2 && fields[0] != "max" {
			quota, qerr := strconv.ParseInt(fields[0], 10, 64)
			period, perr := strconv.ParseInt(fields[1], 10, 64)
			if qerr == nil && perr == nil && quota > 0 && period > 0 {
				return int(math.Ceil(float64(quota) / float64(period)))
			}
		}
		return 0
	}
	// cgroup v1
	quotaRaw, qerr := os.ReadFile(filepath.Join(root, "cpu", "cpu.cfs_quota_us"))
	periodRaw, perr := os.ReadFile(filepath.Join(root, "cpu", "cpu.cfs_period_us"))
	if qerr == nil && perr == nil {
		quota, qerr := strconv.ParseInt(strings.TrimSpace(string(quotaRaw)), 10, 64)
		period, perr := strconv.ParseInt(strings.TrimSpace(string(periodRaw)), 10, 64)
		if qerr == nil && perr == nil && quota > 0 && period > 0 {
			return int(math.Ceil(float64(quota) / float64(period)))
		}
	}
	return 0
}

func parseMemory(raw string) int64 {
	s := strings.TrimSpace(raw)
	if s == "" || s == "max" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 || v == math.MaxInt64 {
		return 0
	}
	return v
}
