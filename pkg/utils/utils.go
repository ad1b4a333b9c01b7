package utils

import (
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
)

// GetSchemaFromConfig returns the indented JSON schema of config. Struct
// configs are expanded at the root so their properties sit at the top level;
// nested structs stay under $defs.
func GetSchemaFromConfig(config any) (string, error) {
	t := reflect.TypeOf(config)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	reflector := &jsonschema.Reflector{
		ExpandedStruct: t != nil && t.Kind() == reflect.Struct && t.Name() != "",
	}

	data, err := json.MarshalIndent(reflector.Reflect(config), "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to encode config schema", err)
	}

	return string(data), nil
}
