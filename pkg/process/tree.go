// SPDX-License-Identifier: GPL-3.0-only
package process

import (
	"errors"
	"slices"

	gops "github.com/shirou/gopsutil/v4/process"
)

// Tree inspects and signals operating system processes by pid.
type Tree interface {
	// Descendants returns every transitive child of pid, parents before children.
	Descendants(pid int) ([]int, error)
	// Terminate asks pid to exit.
	Terminate(pid int) error
	// Kill forces pid to exit.
	Kill(pid int) error
	// Alive reports whether pid is still running. Zombies are not alive.
	Alive(pid int) bool
}

// SystemTree is the Tree of the running host, backed by gopsutil.
type SystemTree struct{}

var _ Tree = SystemTree{}

func (SystemTree) Descendants(pid int) ([]int, error) {
	root, err := gops.NewProcess(int32(pid))
	if err != nil {
		return nil, err
	}
	var out []int
	queue := []*gops.Process{root}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		children, err := p.Children()
		if err != nil {
			if errors.Is(err, gops.ErrorNoChildren) {
				continue
			}
			if p == root {
				return nil, err
			}
			// an intermediate process exited while walking
			continue
		}
		for _, c := range children {
			if slices.Contains(out, int(c.Pid)) {
				continue
			}
			out = append(out, int(c.Pid))
			queue = append(queue, c)
		}
	}
	return out, nil
}

func (SystemTree) Terminate(pid int) error {
	p, err := gops.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	return p.Terminate()
}

func (SystemTree) Kill(pid int) error {
	p, err := gops.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	return p.Kill()
}

func (SystemTree) Alive(pid int) bool {
	p, err := gops.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	if status, err := p.Status(); err == nil && slices.Contains(status, gops.Zombie) {
		return false
	}
	running, err := p.IsRunning()
	return err == nil && running
}
