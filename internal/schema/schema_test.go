package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateJobspec_Minimal(t *testing.T) {
	assert.NoError(t, ValidateJobspec([]byte(`{"tasks":1}`)))
}

func TestValidateJobspec_WithResources(t *testing.T) {
	spec := `{
		"tasks": 4,
		"version": 1,
		"resources": [
			{"type": "node", "count": 2, "with": [{"type": "core", "count": 8}]}
		],
		"attributes": {"project": "astro"}
	}`
	assert.NoError(t, ValidateJobspec([]byte(spec)))
}

func TestValidateJobspec_UnknownFieldsAllowed(t *testing.T) {
	assert.NoError(t, ValidateJobspec([]byte(`{"tasks":1,"future_field":true}`)))
}

func TestValidateJobspec_MissingTasks(t *testing.T) {
	assert.Error(t, ValidateJobspec([]byte(`{"version":1}`)))
}

func TestValidateJobspec_ZeroTasks(t *testing.T) {
	assert.Error(t, ValidateJobspec([]byte(`{"tasks":0}`)))
}

func TestValidateJobspec_NotJSON(t *testing.T) {
	assert.Error(t, ValidateJobspec([]byte("tasks: 1")))
}

func TestValidateJobspec_BadResourceType(t *testing.T) {
	assert.Error(t, ValidateJobspec([]byte(`{"tasks":1,"resources":[{"type":7}]}`)))
}
