// Package logging sets up structured logging for qmdsync.
//
// Logs are JSON lines written to a size-rotated file under ~/.qmdsync/logs/.
// Interactive commands also mirror them to stderr; the MCP server never does,
// because its stdio streams carry the protocol.
package logging
