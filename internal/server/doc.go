// Package server exposes projectcamp over HTTP.
//
// All API routes live under /api/v1/users. Responses use one envelope:
//
//	{"statusCode": 200, "data": {...}, "message": "...", "success": true}
//	{"statusCode": 403, "message": "...", "success": false, "errors": {}}
//
// Project routes pass through auth.RequireUser and then auth.RequireProjectRole
// with the roles listed in routes.go. The server listens on server.http_addr or,
// when tailscale.enabled is set, on a tsnet node (port 80, or 443 through Funnel).
package server
