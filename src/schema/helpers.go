package schema

import (
	jsonschema "github.com/swaggest/jsonschema-go"
)

// Draft is the JSON Schema dialect of documents built here.
const Draft = "http://json-schema.org/draft-07/schema#"

// CreateStringSchema creates a JSON schema for a string field
func CreateStringSchema(description string) *jsonschema.Schema {
	strType := jsonschema.SimpleType("string")
	return &jsonschema.Schema{
		Type:        &jsonschema.Type{SimpleTypes: &strType},
		Description: &description,
	}
}

// CreateStringSchemaEnum creates a JSON schema for a string field with enum values
func CreateStringSchemaEnum(description string, enumValues []string) *jsonschema.Schema {
	s := CreateStringSchema(description)
	s.Enum = make([]interface{}, len(enumValues))
	for i, v := range enumValues {
		s.Enum[i] = v
	}
	return s
}

// CreateObjectSchema creates a closed object schema: properties not listed are rejected
func CreateObjectSchema(properties map[string]*jsonschema.Schema, required []string) *jsonschema.Schema {
	schemaProps := make(map[string]jsonschema.SchemaOrBool, len(properties))
	for name, prop := range properties {
		schemaProps[name] = jsonschema.SchemaOrBool{TypeObject: prop}
	}

	closed := false
	objType := jsonschema.SimpleType("object")
	return &jsonschema.Schema{
		Type:                 &jsonschema.Type{SimpleTypes: &objType},
		Properties:           schemaProps,
		Required:             required,
		AdditionalProperties: &jsonschema.SchemaOrBool{TypeBoolean: &closed},
	}
}

// CreateArraySchema creates a JSON schema for an array whose elements match items
func CreateArraySchema(description string, items *jsonschema.Schema) *jsonschema.Schema {
	arrType := jsonschema.SimpleType("array")
	return &jsonschema.Schema{
		Type:        &jsonschema.Type{SimpleTypes: &arrType},
		Description: &description,
		Items: &jsonschema.Items{
			SchemaOrBool: &jsonschema.SchemaOrBool{TypeObject: items},
		},
	}
}
