// Package bridge adapts net/http requests to the three-callable application
// interface (application, receive, send) and turns the application's response
// events back into an HTTP response.
//
// Every request gets its own Scope, Receive and Send. Nothing is shared across
// requests, so the handler is safe to serve concurrently.
package bridge
