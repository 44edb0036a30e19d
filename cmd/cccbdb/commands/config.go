package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cccbdb-harvester/internal/components/telemetry"
	"cccbdb-harvester/internal/input"
	"cccbdb-harvester/internal/retry"
	"cccbdb-harvester/internal/scrapers/cccbdb"
)

type S3Config struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
}

type Config struct {
	BaseUrl  string `json:"base_url"`
	Attempts int    `json:"attempts"`
	// Delay accepts the same values as the [delay] argument of fetch.
	Delay            string           `json:"delay"`
	OutputDir        string           `json:"output_dir"`
	Column           string           `json:"column"`
	Rate             float64          `json:"rate"`
	CloudflareBypass bool             `json:"cloudflare_bypass"`
	S3               S3Config         `json:"s3"`
	Telemetry        telemetry.Config `json:"telemetry"`
}

var defaultConfig = Config{
	BaseUrl:   cccbdb.DefaultBaseUrl,
	Attempts:  retry.DefaultAttempts,
	Delay:     retry.DefaultDelay.String(),
	OutputDir: "cccbdb_data",
	Column:    input.DefaultColumn,
	Rate:      2,
}

// parseDelay accepts a go duration ("1500ms", "2s") or a plain number of
// seconds ("2", "0.5").
func parseDelay(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	seconds, err := strconv.ParseFloat(value, 64)
	if err == nil {
		if seconds < 0 {
			return 0, fmt.Errorf("delay %q must not be negative", value)
		}
		return time.Duration(seconds * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid delay %q: %w", value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("delay %q must not be negative", value)
	}
	return d, nil
}

func parseAttempts(value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid attempts %q: %w", value, err)
	}
	return n, nil
}

// applyRetryArgs layers the optional positional [attempts] [delay] arguments
// of fetch over cfg.
func applyRetryArgs(cfg Config, args []string) (Config, error) {
	if len(args) > 0 {
		n, err := parseAttempts(args[0])
		if err != nil {
			return cfg, err
		}
		cfg.Attempts = n
	}
	if len(args) > 1 {
		cfg.Delay = args[1]
	}
	return cfg, nil
}

func retryPolicy(cfg Config) (retry.Policy, error) {
	d, err := parseDelay(cfg.Delay)
	if err != nil {
		return retry.Policy{}, err
	}
	policy := retry.Policy{
		Attempts: cfg.Attempts,
		Delay:    d,
	}
	return policy, policy.Validate()
}
