// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package action

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/golang/glog"
	"github.com/juju/errors"
)

// ExitError is returned by Exec if the tool exited with a non-zero code.
type ExitError struct {
	Tool string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Tool, e.Code)
}

// Exec runs the external tool. The arguments are expanded using the state
// variables right before the tool is started.
type Exec struct {
	Msg  string
	Tool string
	Args []string
}

func (a *Exec) String() string {
	if a.Msg != "" {
		return a.Msg
	}
	return "Running " + a.Tool
}

// Argv returns the expanded command line.
func (a *Exec) Argv(s *State) []string {
	argv := make([]string, 0, len(a.Args)+1)
	argv = append(argv, s.Expand(a.Tool))
	for _, arg := range a.Args {
		argv = append(argv, s.Expand(arg))
	}
	return argv
}

func (a *Exec) Run(ctx context.Context, s *State) error {
	argv := a.Argv(s)
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return errors.Trace(err)
	}
	glog.V(1).Infof("exec: %q", argv)
	c := exec.CommandContext(ctx, path, argv[1:]...)
	c.Stdin = s.Stdin
	c.Stdout = s.Stdout
	c.Stderr = s.Stderr
	err = c.Run()
	if ee, ok := err.(*exec.ExitError); ok {
		return &ExitError{argv[0], ee.ProcessState.ExitCode()}
	}
	return errors.Trace(err)
}
