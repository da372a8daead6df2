// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package hwinfo probes the identity of the host device for the beacon
// prefix: operating system, manufacturer and model.
//
// On Linux the manufacturer and model come from DMI
// (/sys/class/dmi/id/sys_vendor and product_name) and the operating
// system string includes the kernel release from uname(2). Elsewhere
// only runtime.GOOS is known.
//
// Probing never fails. Missing or unreadable files produce empty
// fields: a container without DMI is still a valid device.
package hwinfo
