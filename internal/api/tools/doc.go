// Package tools exposes the link API as MCP tools.
//
// Tools:
//
//   - link_list: list a project's links
//   - link_add: link a project to a target project under an env name
//   - link_update: rename a link's env name
//   - link_delete: remove a link and force a rebuild
//
// Results are JSON text content. Link errors are returned as tool errors
// carrying the error code so clients can branch on it. Mutations return as
// soon as the link set is stored; the reconciliation outcome is published on
// the event stream like for HTTP callers.
package tools
