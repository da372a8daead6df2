// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	savedCommit, savedDirty, savedTime := GitCommit, GitDirty, BuildTime
	t.Cleanup(func() { GitCommit, GitDirty, BuildTime = savedCommit, savedDirty, savedTime })

	GitCommit, GitDirty, BuildTime = "abc1234", "true", "2026-02-10T00:00:00Z"
	want := Version + " (abc1234-dirty, 2026-02-10T00:00:00Z)"
	if got := Info(); got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}

	GitDirty = "false"
	if strings.Contains(Info(), "-dirty") {
		t.Errorf("clean build reported dirty: %q", Info())
	}
}

func TestFull(t *testing.T) {
	full := Full()
	if !strings.Contains(full, runtime.Version()) || !strings.Contains(full, runtime.GOOS+"/"+runtime.GOARCH) {
		t.Errorf("Full() = %q lacks Go version or platform", full)
	}
	if Short() != Version || Commit() != GitCommit {
		t.Error("Short or Commit do not return the raw variables")
	}
}

func TestPrint(t *testing.T) {
	var output bytes.Buffer
	fprint(&output, "beacon-loadgen")
	if want := "beacon-loadgen " + Info() + "\n"; output.String() != want {
		t.Errorf("output = %q, want %q", output.String(), want)
	}
}
