package config

import (
	"encoding/json"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/sksurgery/stereovision/vision/stereo"
)

// RegisteredSchemas maps each configuration document the tools read to its JSON schema.
var RegisteredSchemas = map[string]*jsonschema.Schema{
	"stereo_calibration": jsonschema.Reflect(&StereoCalibration{}),
	"dot_grid":           jsonschema.Reflect(&DotGridModel{}),
	"block_matcher":      jsonschema.Reflect(&stereo.BlockMatcherConfig{}),
}

// SchemaNames returns the registered schema names in order.
func SchemaNames() []string {
	names := make([]string, 0, len(RegisteredSchemas))
	for name := range RegisteredSchemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SchemaJSON returns the indented JSON schema registered under name.
func SchemaJSON(name string) ([]byte, error) {
	schema, ok := RegisteredSchemas[name]
	if !ok {
		return nil, errors.Errorf("no schema named %q, expected one of %v", name, SchemaNames())
	}
	return json.MarshalIndent(schema, "", "  ")
}
