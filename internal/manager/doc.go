// Package manager provides an HTTP client for the application-management API.
//
// # Overview
//
// The management service owns the truth about which applications exist and
// which are installed on the host. This package is the only place appdeck
// talks to it. It is deliberately thin: it issues requests, decodes JSON and
// collapses every failure into a single *TransportError.
//
// # API Endpoints
//
//   - GET  /v1/apps?installed=1: installed applications
//   - GET  /v1/apps: full catalog, each entry carrying updateAvailable
//   - POST /v1/apps/{id}/install
//   - POST /v1/apps/{id}/uninstall
//   - POST /v1/apps/{id}/update
//
// The POST endpoints only acknowledge that work was accepted. Their bodies are
// ignored and completion has to be observed by re-reading the lists.
//
// # Client Usage
//
//	client, err := manager.NewClient("http://umbrel.local/manager-api",
//		manager.WithToken(token),
//		manager.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//	installed, err := client.ListInstalled(ctx)
//
// # Error Handling
//
// There is one error kind. Network faults, timeouts, undecodable bodies and
// any status outside 2xx are reported as *TransportError, so "app not found",
// "already installed" and "server down" look the same to callers. Use
// IsTransportError or errors.As to detect it.
//
// # Retries
//
// The underlying resty client has retries disabled. Writes must never be
// replayed behind the caller's back, and reads are retried by the pollers that
// call them.
//
// # URL Construction
//
// The API URL may include a path prefix. A missing scheme defaults to http and
// trailing slashes, queries and fragments are dropped:
//
//   - "127.0.0.1:3006" → http://127.0.0.1:3006
//   - "https://host/manager-api/" → https://host/manager-api
package manager
