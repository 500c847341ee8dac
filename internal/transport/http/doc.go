// Package http contains the chi HTTP handlers for the dashboard API.
//
// All responses are JSON rendered with go-chi/render, errors follow RFC
// 7807 via the internal errors package, and cacheable endpoints carry an
// ETag derived from the loaded workbook's fingerprint.
package http
