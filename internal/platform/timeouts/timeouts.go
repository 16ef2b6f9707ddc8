// Package timeouts defines shared timeout constants used across the host.
// Centralizing these values prevents drift between the bridge operations
// and makes the durations discoverable.
package timeouts

import "time"

// CompanionConnect caps the companion subprocess handshake.
const CompanionConnect = 10 * time.Second

// CompanionList caps a single companion tools/list round trip.
const CompanionList = 15 * time.Second

// CompanionCall caps a single companion tool invocation.
const CompanionCall = 60 * time.Second

// ToolchainRun caps one vendor toolchain subprocess run.
const ToolchainRun = 120 * time.Second

// ReadHeader limits how long the HTTP transport waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second
