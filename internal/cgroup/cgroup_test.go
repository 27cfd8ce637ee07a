package cgroup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withRoot(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old := root
	root = dir
	t.Cleanup(func() { root = old })
	return dir
}

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestMemoryLimit(t *testing.T) {
	t.Run("cgroup v2 quota", func(t *testing.T) {
		dir := withRoot(t)
		write(t, dir, "memory.max", "8589934592\n")
		assert.Equal(t, int64(8589934592), MemoryLimit())
	})

	t.Run("cgroup v2 unbounded", func(t *testing.T) {
		dir := withRoot(t)
		write(t, dir, "memory.max", "max\n")
		assert.Equal(t, int64(0), MemoryLimit())
	})

	t.Run("cgroup v1 quota", func(t *testing.T) {
		dir := withRoot(t)
		write(t, dir, "memory/memory.limit_in_bytes", "4294967296\n")
		assert.Equal(t, int64(4294967296), MemoryLimit())
	})

	t.Run("v1 sentinel max is unbounded", func(t *testing.T) {
		dir := withRoot(t)
		write(t, dir, "memory/memory.limit_in_bytes", "9223372036854775807\n")
		assert.Equal(t, int64(0), MemoryLimit())
	})

	t.Run("no files means no limit", func(t *testing.T) {
		withRoot(t)
		assert.Equal(t, int64(0), MemoryLimit())
	})
}

func TestCPUCount(t *testing.T) {
	t.Run("cgroup v2 quota rounds up", func(t *testing.T) {
		dir := withRoot(t)
		write(t, dir, "cpu.max", "250000 100000\n")
		assert.Equal(t, 3, CPUCount())
	})

	t.Run("cgroup v2 unbounded", func(t *testing.T) {
		dir := withRoot(t)
		write(t, dir, "cpu.max", "max 100000\n")
		assert.Equal(t, 0, CPUCount())
	})

	t.Run("cgroup v1 quota", func(t *testing.T) {
		dir := withRoot(t)
		write(t, dir, "cpu/cpu.cfs_quota_us", "400000\n")
		write(t, dir, "cpu/cpu.cfs_period_us", "100000\n")
		assert.Equal(t, 4, CPUCount())
	})

	t.Run("cgroup v1 disabled quota", func(t *testing.T) {
		dir := withRoot(t)
		write(t, dir, "cpu/cpu.cfs_quota_us", "-1\n")
		write(t, dir, "cpu/cpu.cfs_period_us", "100000\n")
		assert.Equal(t, 0, CPUCount())
	})

	t.Run("no files means no quota", func(t *testing.T) {
		withRoot(t)
		assert.Equal(t, 0, CPUCount())
	})
}
