// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"path/filepath"
	"syscall"
)

// DMI fields that firmware fills with placeholders when the vendor
// left them blank.
var dmiPlaceholders = map[string]bool{
	"To Be Filled By O.E.M.": true,
	"Default string":         true,
	"System Product Name":    true,
	"Not Specified":          true,
}

func probe() Device {
	return probeFrom("/sys", readKernelRelease())
}

// probeFrom is the testable implementation of probe. It takes the
// sysfs root so tests can point at a synthetic tree.
func probeFrom(sysRoot, kernelRelease string) Device {
	device := Device{
		OperatingSystem: "linux",
		Manufacturer:    readDMI(sysRoot, "sys_vendor"),
		ModelID:         readDMI(sysRoot, "product_name"),
	}
	if kernelRelease != "" {
		device.OperatingSystem = "linux " + kernelRelease
	}
	return device
}

func readDMI(sysRoot, field string) string {
	value := ReadSysfsString(filepath.Join(sysRoot, "class/dmi/id", field))
	if dmiPlaceholders[value] {
		return ""
	}
	return value
}

// readKernelRelease returns the kernel release string from uname(2).
func readKernelRelease() string {
	var utsname syscall.Utsname
	if err := syscall.Uname(&utsname); err != nil {
		return ""
	}
	return utsNameToString(utsname.Release)
}

// utsNameToString converts a syscall.Utsname field to a string,
// stopping at the first null byte. The element type is int8 or uint8
// depending on the architecture.
func utsNameToString[T int8 | uint8](field [65]T) string {
	buffer := make([]byte, 0, len(field))
	for _, value := range field {
		if value == 0 {
			break
		}
		buffer = append(buffer, byte(value))
	}
	return string(buffer)
}
