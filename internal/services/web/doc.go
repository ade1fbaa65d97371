// Package web hosts the sites HTTP server: static and media files with
// localized error pages, and every other path forwarded through the bridge to
// the downstream application.
package web
