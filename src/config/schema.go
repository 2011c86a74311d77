package config

import (
	"encoding/json"
	"fmt"

	jsonschema "github.com/swaggest/jsonschema-go"
)

// Schema returns the JSON Schema of the config file format.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{}
	schema, err := reflector.Reflect(Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema: %w", err)
	}
	title := "mydrawer configuration"
	schema.Title = &title

	return json.MarshalIndent(schema, "", "  ")
}
