// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package action implements the steps of an upload job: external tool
// invocations and the small local side effects around them.
package action

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/juju/errors"
)

// Variables set by the actions and available for the $VAR expansion of the
// Exec arguments.
const (
	VarUploadPort = "UPLOAD_PORT"
	VarUploadDisk = "UPLOAD_DISK"
)

// State is the per job state shared by the actions.
type State struct {
	Vars   map[string]string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewState returns the state with the copy of vars and the standard streams
// of the process.
func NewState(vars map[string]string) *State {
	s := &State{
		Vars:   make(map[string]string, len(vars)+2),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	for k, v := range vars {
		s.Vars[k] = v
	}
	return s
}

// Expand replaces $VAR and ${VAR} in str with the state variables. Unknown
// variables are left untouched.
func (s *State) Expand(str string) string {
	return os.Expand(str, func(name string) string {
		if v, ok := s.Vars[name]; ok {
			return v
		}
		return "${" + name + "}"
	})
}

// Action is a single step of the upload job.
type Action interface {
	// String returns the short description of the action.
	String() string
	Run(ctx context.Context, s *State) error
}

// Run runs actions in order. It stops at the first failed action.
func Run(ctx context.Context, actions []Action, s *State) error {
	for i, a := range actions {
		fmt.Fprintf(s.Stderr, "%s\n", a)
		glog.V(1).Infof("action %d/%d: %#v", i+1, len(actions), a)
		if err := a.Run(ctx, s); err != nil {
			return errors.Annotate(err, a.String())
		}
	}
	return nil
}

// Describe writes the list of actions to w, one per line, without running
// them.
func Describe(w io.Writer, actions []Action, s *State) error {
	for i, a := range actions {
		line := a.String()
		if e, ok := a.(*Exec); ok {
			line = strings.Join(e.Argv(s), " ")
		}
		if _, err := fmt.Fprintf(w, "%d: %s\n", i+1, line); err != nil {
			return err
		}
	}
	return nil
}
