package api

import (
	_ "embed"
	"net/http"
)

// OpenAPI contains the embedded OpenAPI YAML document of the ops API.
//
//go:embed openapi.yaml
var OpenAPI []byte

func handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(OpenAPI)
}
