// Package api exposes a project's links over HTTP.
//
// Routes, all relative to /api/v1:
//
//	GET    /projects/:id/links   list the project's links
//	POST   /projects/:id/links   {targetProjectID, envName[, parentPFEURL, projectURL]}
//	PUT    /projects/:id/links   {envName[, updatedEnvName]}
//	DELETE /projects/:id/links   {envName}
//
// Mutations answer 202 once the link set is persisted. The running project
// is reconciled afterwards in the background and the outcome is only
// reported as a projectLink event; it never reaches the HTTP caller.
//
// Link errors map to status codes through StatusFor.
package api
