// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sdk is the instrumentation API applications use.
//
// [New] wires one beacon cache, its evictor, a collector client, and
// the beacon sender, and starts the background goroutines:
//
//	kit, err := sdk.New(cfg)
//	...
//	defer kit.Shutdown()
//
//	session := kit.CreateSession(clientIP)
//	action := session.EnterAction("checkout")
//	action.ReportValueInt("items", 3)
//	tracer := action.TraceWebRequest("https://payments.example.com/charge")
//	request.Header.Set(beacon.TagHeader, tracer.Tag())
//	tracer.Start()
//	...
//	tracer.SetResponseCode(response.StatusCode)
//	tracer.Stop()
//	action.Leave()
//	session.End()
//
// Instrumentation never fails and never blocks on the network.
// Calls on a nil object, on a left action, on a stopped tracer, or on
// an ended session do nothing. Leaving an action leaves its open child
// actions first; ending a session leaves its open actions.
package sdk
