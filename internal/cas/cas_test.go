package cas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		raw      string
		expected Number
		invalid  bool
	}{
		{raw: "7732-18-5", expected: "7732185"},
		{raw: " 7732185\n", expected: "7732185"},
		{raw: "64-17-5", expected: "64175"},
		{raw: "", invalid: true},
		{raw: "   ", invalid: true},
		{raw: "-7732", invalid: true},
		{raw: "7732-", invalid: true},
		{raw: "77--32", invalid: true},
		{raw: "7732185.0", invalid: true},
		{raw: "H2O", invalid: true},
	}

	for _, test := range cases {
		parsed, err := Parse(test.raw)
		if test.invalid {
			require.Error(t, err, test.raw)
			continue
		}
		require.NoError(t, err, test.raw)
		require.Equal(t, test.expected, parsed)
	}
}

func TestUnmarshalLegacyIntegers(t *testing.T) {
	var out struct {
		Done   []Number          `json:"done"`
		Failed map[Number]string `json:"failed"`
	}
	err := json.Unmarshal([]byte(`{"done": [7732185, "64-17-5"], "failed": {"50000": "boom"}}`), &out)
	require.NoError(t, err)
	require.Equal(t, []Number{"7732185", "64175"}, out.Done)
	require.Equal(t, map[Number]string{"50000": "boom"}, out.Failed)

	err = json.Unmarshal([]byte(`{"done": [true]}`), &out)
	require.Error(t, err)
}

func TestDashedAndBareFormsAreOneKey(t *testing.T) {
	dashed, err := Parse("7732-18-5")
	require.NoError(t, err)
	bare, err := Parse("7732185")
	require.NoError(t, err)
	require.Equal(t, bare, dashed)

	var set map[Number]bool
	require.NoError(t, json.Unmarshal([]byte(`{"7732-18-5": true, "7732185": true}`), &set))
	require.Len(t, set, 1)
}
