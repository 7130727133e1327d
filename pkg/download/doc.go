// Package download writes export payloads to disk asynchronously and
// exposes an observable lifecycle per download. Callers start a download,
// poll its state through a watcher, and release the payload once the
// outcome is known.
package download
