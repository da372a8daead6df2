// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package hwinfo

import "runtime"

func probe() Device {
	return Device{OperatingSystem: runtime.GOOS}
}
