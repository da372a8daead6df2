// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"os"
	"strings"
)

// Device is the probed device identity.
type Device struct {
	OperatingSystem string
	Manufacturer    string
	ModelID         string
}

// Probe returns the identity of the host.
func Probe() Device {
	return probe()
}

// Fill sets every empty field of target from d.
func (d Device) Fill(target *Device) {
	if target.OperatingSystem == "" {
		target.OperatingSystem = d.OperatingSystem
	}
	if target.Manufacturer == "" {
		target.Manufacturer = d.Manufacturer
	}
	if target.ModelID == "" {
		target.ModelID = d.ModelID
	}
}

// ReadSysfsString reads a sysfs attribute and trims surrounding
// whitespace. Returns "" on any error.
func ReadSysfsString(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
