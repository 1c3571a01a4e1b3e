package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	jsonschema "github.com/swaggest/jsonschema-go"
)

func TestCreateStringSchema(t *testing.T) {
	s := CreateStringSchema("test description")
	require.NotNil(t, s)
	require.NotNil(t, s.Description)
	assert.Equal(t, "test description", *s.Description)
	require.NotNil(t, s.Type)
	require.NotNil(t, s.Type.SimpleTypes)
	assert.Equal(t, jsonschema.SimpleType("string"), *s.Type.SimpleTypes)
}

func TestCreateStringSchemaEnum(t *testing.T) {
	s := CreateStringSchemaEnum("role", []string{"user", "bot"})
	assert.Equal(t, []interface{}{"user", "bot"}, s.Enum)
}

func TestCreateObjectSchema(t *testing.T) {
	s := CreateObjectSchema(map[string]*jsonschema.Schema{
		"name": CreateStringSchema("name"),
	}, []string{"name"})

	assert.Equal(t, jsonschema.SimpleType("object"), *s.Type.SimpleTypes)
	assert.Contains(t, s.Properties, "name")
	assert.Equal(t, []string{"name"}, s.Required)
	require.NotNil(t, s.AdditionalProperties)
	require.NotNil(t, s.AdditionalProperties.TypeBoolean)
	assert.False(t, *s.AdditionalProperties.TypeBoolean)
}

func TestTranscriptSchema(t *testing.T) {
	data, err := json.Marshal(Transcript())
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, Draft, doc["$schema"])
	assert.Equal(t, "array", doc["type"])

	items, ok := doc["items"].(map[string]interface{})
	require.True(t, ok, "items should be an object: %s", data)
	assert.Equal(t, "object", items["type"])
	assert.ElementsMatch(t, []interface{}{"role", "content"}, items["required"])
	assert.Equal(t, false, items["additionalProperties"])

	props := items["properties"].(map[string]interface{})
	role := props["role"].(map[string]interface{})
	assert.Equal(t, []interface{}{"user", "bot"}, role["enum"])
}
