package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cccbdb-harvester/internal/cas"
	"cccbdb-harvester/internal/retry"

	"github.com/stretchr/testify/require"
)

func TestParseDelay(t *testing.T) {
	cases := []struct {
		value string
		want  time.Duration
	}{
		{value: "2", want: 2 * time.Second},
		{value: "0.5", want: 500 * time.Millisecond},
		{value: "0", want: 0},
		{value: "1500ms", want: 1500 * time.Millisecond},
		{value: " 3s ", want: 3 * time.Second},
	}
	for _, test := range cases {
		d, err := parseDelay(test.value)
		require.NoError(t, err, test.value)
		require.Equal(t, test.want, d, test.value)
	}

	for _, bad := range []string{"", "soon", "-1", "-2s"} {
		_, err := parseDelay(bad)
		require.Error(t, err, bad)
	}
}

func TestRetryPolicyDefaults(t *testing.T) {
	policy, err := retryPolicy(defaultConfig)
	require.NoError(t, err)
	require.Equal(t, retry.DefaultPolicy, policy)
}

func TestRetryArgsOverrideConfig(t *testing.T) {
	cfg, err := applyRetryArgs(defaultConfig, []string{"3", "1"})
	require.NoError(t, err)
	policy, err := retryPolicy(cfg)
	require.NoError(t, err)
	require.Equal(t, retry.Policy{Attempts: 3, Delay: time.Second}, policy)

	cfg, err = applyRetryArgs(defaultConfig, []string{"7"})
	require.NoError(t, err)
	policy, err = retryPolicy(cfg)
	require.NoError(t, err)
	require.Equal(t, retry.Policy{Attempts: 7, Delay: retry.DefaultDelay}, policy)

	_, err = applyRetryArgs(defaultConfig, []string{"many"})
	require.Error(t, err)

	cfg, err = applyRetryArgs(defaultConfig, []string{"0"})
	require.NoError(t, err)
	_, err = retryPolicy(cfg)
	require.Error(t, err)
}

func TestApplyFetchFlags(t *testing.T) {
	t.Cleanup(func() {
		for _, name := range []string{"out", "rate", "s3-bucket"} {
			fetchCmd.Flags().Lookup(name).Changed = false
		}
	})
	require.NoError(t, fetchCmd.Flags().Set("out", "pages"))
	require.NoError(t, fetchCmd.Flags().Set("rate", "0"))
	require.NoError(t, fetchCmd.Flags().Set("s3-bucket", "harvest"))

	cfg := applyFetchFlags(fetchCmd, defaultConfig)
	require.Equal(t, "pages", cfg.OutputDir)
	require.Equal(t, float64(0), cfg.Rate)
	require.Equal(t, "harvest", cfg.S3.Bucket)
	require.Equal(t, defaultConfig.Column, cfg.Column)
	require.Equal(t, defaultConfig.BaseUrl, cfg.BaseUrl)
}

func TestExtractIds(t *testing.T) {
	ids, err := extractIds([]string{"7732-18-5", "64175"}, "")
	require.NoError(t, err)
	require.Equal(t, []cas.Number{"7732185", "64175"}, ids)

	_, err = extractIds([]string{"water"}, "")
	require.Error(t, err)
	_, err = extractIds(nil, "")
	require.Error(t, err)
	_, err = extractIds(nil, filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"done": ["64175", 7732185], "failed": {"74828": "boom"}}`), 0o644))
	ids, err = extractIds(nil, path)
	require.NoError(t, err)
	require.Equal(t, []cas.Number{"64175", "7732185"}, ids)
}
