// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package action

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rp2tools/rp2plat/rp2tool/internal/serialport"
)

func testState(vars map[string]string) (*State, *bytes.Buffer) {
	s := NewState(vars)
	out := new(bytes.Buffer)
	s.Stdin = strings.NewReader("")
	s.Stdout = out
	s.Stderr = out
	return s, out
}

type recorder struct {
	name string
	log  *[]string
	err  error
}

func (r *recorder) String() string { return r.name }

func (r *recorder) Run(ctx context.Context, s *State) error {
	*r.log = append(*r.log, r.name)
	return r.err
}

func TestRunStopsAtFailure(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	actions := []Action{
		&recorder{"a", &log, nil},
		&recorder{"b", &log, boom},
		&recorder{"c", &log, nil},
	}
	s, out := testState(nil)
	err := Run(context.Background(), actions, s)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if strings.Join(log, ",") != "a,b" {
		t.Errorf("ran %q", log)
	}
	if out.String() != "a\nb\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestExpand(t *testing.T) {
	s, _ := testState(map[string]string{"SOURCE": "fw.elf", VarUploadPort: "/dev/ttyACM0"})
	got := s.Expand("-f ${SOURCE} -p $UPLOAD_PORT $UNKNOWN")
	want := "-f fw.elf -p /dev/ttyACM0 ${UNKNOWN}"
	if got != want {
		t.Errorf("Expand = %q, want %q", got, want)
	}
}

func TestNewStateCopiesVars(t *testing.T) {
	vars := map[string]string{"A": "1"}
	s := NewState(vars)
	s.Vars["A"] = "2"
	if vars["A"] != "1" {
		t.Error("NewState shares the vars map")
	}
}

func TestExecExitCode(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no sh")
	}
	s, _ := testState(map[string]string{"CODE": "3"})
	err := (&Exec{Tool: "sh", Args: []string{"-c", "exit $CODE"}}).Run(context.Background(), s)
	var ee *ExitError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want *ExitError", err)
	}
	if ee.Code != 3 || ee.Tool != "sh" {
		t.Errorf("ExitError = %+v", ee)
	}
	err = (&Exec{Tool: "sh", Args: []string{"-c", "echo $SOURCE"}}).Run(context.Background(), s)
	if err != nil {
		t.Error(err)
	}
}

func TestExecNotFound(t *testing.T) {
	s, _ := testState(nil)
	err := (&Exec{Tool: "rp2tool-no-such-tool"}).Run(context.Background(), s)
	if err == nil {
		t.Error("no error for a missing tool")
	}
}

func TestDescribe(t *testing.T) {
	s, _ := testState(map[string]string{"SOURCE": "fw.bin"})
	var buf bytes.Buffer
	err := Describe(&buf, []Action{
		&Delay{D: time.Second},
		&Exec{Tool: "openocd", Args: []string{"-c", "program {$SOURCE}"}},
	}, s)
	if err != nil {
		t.Fatal(err)
	}
	want := "1: Waiting 1s\n2: openocd -c program {fw.bin}\n"
	if buf.String() != want {
		t.Errorf("Describe = %q, want %q", buf.String(), want)
	}
}

func TestWriteFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "build", "upload.jlink")
	s, _ := testState(nil)
	if err := (&WriteFile{name, []byte("h\nq")}).Run(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(name)
	if err != nil || string(data) != "h\nq" {
		t.Errorf("ReadFile = %q, %v", data, err)
	}
}

func TestDelayCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, _ := testState(nil)
	err := (&Delay{D: time.Hour}).Run(ctx, s)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

type fixedLister []serialport.Port

func (l fixedLister) List() ([]serialport.Port, error) { return l, nil }

func TestDetectPort(t *testing.T) {
	l := fixedLister{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "2E8A"},
	}
	s, _ := testState(nil)
	if err := (&DetectPort{Lister: l}).Run(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	if s.Vars[VarUploadPort] != "/dev/ttyACM0" {
		t.Errorf("port = %q", s.Vars[VarUploadPort])
	}
}

func TestDetectPortWait(t *testing.T) {
	serialport.PollInterval = time.Millisecond
	l := fixedLister{{Name: "/dev/ttyACM0", IsUSB: true, VID: "2E8A"}}
	s, _ := testState(map[string]string{VarUploadPort: "/dev/ttyACM0"})
	a := &DetectPort{Wait: true, Timeout: 10 * time.Millisecond, Lister: l}
	if err := a.Run(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	if s.Vars[VarUploadPort] != "/dev/ttyACM0" {
		t.Errorf("port = %q", s.Vars[VarUploadPort])
	}
}

func TestDetectPortNone(t *testing.T) {
	s, _ := testState(nil)
	err := (&DetectPort{Touch: true, Lister: fixedLister{{Name: "/dev/ttyS0"}}}).Run(context.Background(), s)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Vars[VarUploadPort]; ok {
		t.Errorf("port = %q, want none", s.Vars[VarUploadPort])
	}
}

func TestDiskUpload(t *testing.T) {
	root := t.TempDir()
	disk := filepath.Join(root, "RPI-RP2")
	if err := os.Mkdir(disk, 0o777); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(t.TempDir(), "firmware.uf2")
	if err := os.WriteFile(src, []byte("UF2"), 0o666); err != nil {
		t.Fatal(err)
	}
	s, _ := testState(map[string]string{"SOURCE": src})
	actions := []Action{
		&DetectDisk{Labels: []string{"RPI-RP2"}, Roots: []string{root}, Timeout: time.Second},
		&CopyToDisk{Source: "$SOURCE"},
	}
	if err := Run(context.Background(), actions, s); err != nil {
		t.Fatal(err)
	}
	if data, err := os.ReadFile(filepath.Join(disk, "firmware.uf2")); err != nil || string(data) != "UF2" {
		t.Errorf("copied file = %q, %v", data, err)
	}
}

func TestCopyToDiskWithoutDisk(t *testing.T) {
	s, _ := testState(nil)
	if err := (&CopyToDisk{Source: "x.uf2"}).Run(context.Background(), s); err == nil {
		t.Error("no error without a detected disk")
	}
}

func TestTouchPortWithoutPort(t *testing.T) {
	s, _ := testState(nil)
	err := (&TouchPort{Lister: fixedLister{{Name: "/dev/ttyS0"}}}).Run(context.Background(), s)
	if err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}
