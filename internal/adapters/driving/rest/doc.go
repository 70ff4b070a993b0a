// Package rest serves the intent and flow operations as a JSON HTTP API.
//
// Routes live under /api; /health reports liveness. Domain errors map to
// status codes in one place (respondError) and every client is rate limited
// by IP with a token bucket.
package rest
