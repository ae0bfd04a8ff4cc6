package controller

import (
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi/openapi.yaml
var openapiSpec []byte

// GetSwagger parses and validates the embedded OpenAPI document.
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	swagger, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("loading openapi document: %w", err)
	}
	if err := swagger.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validating openapi document: %w", err)
	}
	return swagger, nil
}
