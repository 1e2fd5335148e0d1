package ups

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnakeToCamel(t *testing.T) {
	cases := map[string]string{
		"client_id":     "clientId",
		"expires_in":    "expiresIn",
		"refresh_count": "refreshCount",
		"status":        "status",
		"alreadyCamel":  "alreadyCamel",
		"_leading":      "leading",
		"a__b":          "aB",
		"":              "",
	}
	for in, want := range cases {
		require.Equal(t, want, snakeToCamel(in), in)
	}
}

func TestCamelizeKeys_Nested(t *testing.T) {
	var in any
	require.NoError(t, json.Unmarshal([]byte(`{"outer_key":{"inner_key":[{"deep_key":1},"plain_value",2]},"n":null}`), &in))

	out, err := json.Marshal(camelizeKeys(in))
	require.NoError(t, err)
	require.JSONEq(t, `{"outerKey":{"innerKey":[{"deepKey":1},"plain_value",2]},"n":null}`, string(out))
}

func TestCamelizeKeys_Scalars(t *testing.T) {
	require.Equal(t, "snake_value", camelizeKeys("snake_value"))
	require.Nil(t, camelizeKeys(nil))
}
