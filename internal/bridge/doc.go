// Package bridge mirrors the tool catalog of an external companion process
// into the host's own MCP catalog.
//
// The companion is an MCP server reached over a spawned subprocess. Client
// owns that session, ProxyRegistry owns the proxy registrations derived from
// the companion catalog, and Coordinator orchestrates discovery, catalog
// synchronization, and failure classification. Schema translation turns the
// companion's externally controlled schema documents into permissive runtime
// validators.
package bridge
