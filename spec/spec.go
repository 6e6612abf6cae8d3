// Package spec embeds the OpenAPI description of the weekend poll API.
// The HTTP server serves it at /openapi.yaml.
package spec

import _ "embed"

// OpenAPI contains the raw bytes of openapi.yaml, embedded at compile time.
// Serving it from the binary means the document and the running code ship together.
//
//go:embed openapi.yaml
var OpenAPI []byte
