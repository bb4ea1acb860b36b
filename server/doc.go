// Package server exposes a pdfchat assistant over a JSON HTTP API.
//
// Every route under /api passes the credential gate first: the key comes from
// the X-API-Key header, or the api_key form field of a multipart upload.
// Requests without one get 401 and a warning body; nothing else runs.
//
//	POST /api/documents                        multipart "file"
//	POST /api/sessions/{sessionID}/questions   {"question": "..."}
//	GET  /api/sessions
//	GET  /api/sessions/{sessionID}/history
//	GET  /healthz
package server
