// Package proctree enumerates process descendants for whole-subtree
// cancellation.
package proctree

import "github.com/shirou/gopsutil/v4/process"

// Descendants returns every transitive child of the given process, deepest
// first. Processes that disappear during the walk are skipped.
func Descendants(p *process.Process) []*process.Process {
	children, err := p.Children()
	if err != nil {
		return nil
	}
	var all []*process.Process
	for _, child := range children {
		all = append(all, Descendants(child)...)
		all = append(all, child)
	}
	return all
}
