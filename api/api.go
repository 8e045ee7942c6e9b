// Package api встраивает OpenAPI-описание HTTP API для /swagger.
package api

import _ "embed"

//go:embed openapi.json
var OpenAPISpec []byte
