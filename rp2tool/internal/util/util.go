// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package util

import (
	"fmt"
	"os"
	"strconv"

	"github.com/golang/glog"
	"golang.org/x/term"
)

func Warn(f string, args ...any) {
	glog.WarningDepth(1, fmt.Sprintf(f, args...))
}

func Fatal(f string, args ...any) {
	glog.ExitDepth(1, fmt.Sprintf(f, args...))
}

// FatalErr prints an error description and exits the program if the
// err != nil.
func FatalErr(what string, err error) {
	if err == nil {
		return
	}
	s := err.Error()
	if what != "" {
		s = what + ": " + s
	}
	glog.ExitDepth(1, s)
}

// Exit flushes the log and exits the program with the given code.
func Exit(code int) {
	glog.Flush()
	os.Exit(code)
}

// Getenv returns the value of the environment variable or def if it's unset.
func Getenv(name, def string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return def
}

// IsTerminal reports whether the standard error is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

var pbuf = make([]byte, 80)

const (
	ptodo = "                         ] "
	pdone = " [========================="
)

// Progress draws a progress bar on the standard error. It does nothing if the
// standard error isn't a terminal.
func Progress(pre string, cur, max, scale int, post string) {
	if max <= 0 || !IsTerminal() {
		return
	}
	pbuf = pbuf[:0]
	pbuf = append(pbuf, '\r')
	pbuf = append(pbuf, pre...)
	done := 25 * cur / max
	pbuf = append(pbuf, pdone[:2+done]...)
	pbuf = append(pbuf, ptodo[done:]...)
	pbuf = strconv.AppendInt(pbuf, int64(cur/scale), 10)
	pbuf = append(pbuf, ' ')
	pbuf = append(pbuf, post...)
	if cur == max {
		pbuf = append(pbuf, '\n')
	}
	os.Stderr.Write(pbuf)
}
