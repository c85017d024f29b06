package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactMasksSensitiveKeys(t *testing.T) {
	data := map[string]any{
		"api_key":  "sk-abcdef123456",
		"Token":    "xyz",
		"username": "alice",
	}
	out := Redact(data)
	assert.Equal(t, redactedPlaceholder, out["api_key"])
	assert.Equal(t, redactedPlaceholder, out["Token"])
	assert.Equal(t, "alice", out["username"])
}

func TestRedactRecursesIntoNestedStructures(t *testing.T) {
	data := map[string]any{
		"request": map[string]any{
			"headers": map[string]any{
				"authorization": "Bearer abc.def.ghi",
			},
		},
		"items": []any{
			map[string]any{"secret": "shh"},
			map[string]any{"name": "ok"},
		},
	}
	out := Redact(data)
	req := out["request"].(map[string]any)
	headers := req["headers"].(map[string]any)
	assert.Equal(t, redactedPlaceholder, headers["authorization"])

	items := out["items"].([]any)
	assert.Equal(t, redactedPlaceholder, items[0].(map[string]any)["secret"])
	assert.Equal(t, "ok", items[1].(map[string]any)["name"])
}

func TestRedactScrubsEmbeddedSecretShapedSubstrings(t *testing.T) {
	data := map[string]any{
		"note": "retrying with api_key=sk-live-12345 after 401",
	}
	out := Redact(data)
	assert.Contains(t, out["note"], redactedPlaceholder)
	assert.NotContains(t, out["note"], "sk-live-12345")
}

func TestRedactDoesNotMutateInput(t *testing.T) {
	data := map[string]any{"password": "hunter2"}
	_ = Redact(data)
	assert.Equal(t, "hunter2", data["password"])
}
