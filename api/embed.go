// Package api carries the OpenAPI description of the VIGIL REST surface.
package api

import _ "embed"

// OpenAPISpec is the OpenAPI 3.1 YAML served at GET /openapi.yaml.
//
//go:embed openapi.yaml
var OpenAPISpec []byte
