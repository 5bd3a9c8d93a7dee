// Package server implements the HTTP side of the file-share service: the
// route table, the list/upload/download/static handlers, the middleware
// chain (request id, access log, CORS, panic recovery) and the Prometheus
// metrics. Storage is delegated to internal/storage.
package server
