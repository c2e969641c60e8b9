package tools

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// ParamsFor reflects a parameter struct into a JSON-schema object suitable
// for Tool.Parameters. Field descriptions and enums come from jsonschema
// struct tags.
func ParamsFor(v any) map[string]any {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(v)

	data, err := schema.MarshalJSON()
	if err != nil {
		panic(fmt.Sprintf("tools: schema reflect: %v", err))
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		panic(fmt.Sprintf("tools: schema decode: %v", err))
	}
	delete(m, "$schema")
	delete(m, "$id")
	return m
}
