// Package server exposes the relationship and playlist operations over HTTP.
//
// # Routing
//
// [Server.Routes] builds a chi router. Every route except /health and /playlists/shared/{token} runs behind
// [Authenticate], which resolves the caller through an [identity.Provider] and stores the user id in the
// request context.
//
// # Middleware
//
// [Middleware] wraps handlers in the standard Go pattern. [RequestLogger] logs each request with its status
// and duration through charmbracelet/log.
//
// # Errors
//
// Handlers return domain errors unchanged to [writeError], which maps the error kinds in
// internal/shared to status codes: invalid input 400, not authenticated 401, forbidden 403, not found 404,
// conflict 409, unavailable 503 and anything else 500.
package server
