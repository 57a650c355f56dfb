package observability

import (
	"os"
	"strconv"
	"strings"

	"github.com/happybase/portal/internal/config"
)

const (
	defaultServiceName      = "happybase"
	defaultProtocol         = "grpc"
	productionSamplingRatio = 0.1
)

// Config is the resolved logging and telemetry setup for the portal service.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

// LoadConfig layers OTEL_* and LOG_* overrides on top of the application
// config. Outside production every trace is sampled and logs default to the
// console encoder.
func LoadConfig(cfg config.Config) Config {
	out := Config{
		ServiceName:          firstNonEmpty(cfg.AppName, defaultServiceName),
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              lookup("SERVICE_VERSION", cfg.AppVersion),
		LogLevel:             strings.ToLower(lookup("LOG_LEVEL", "info")),
		LogFormat:            "json",
		OtelEnabled:          cfg.IsProduction(),
		OtelExporterEndpoint: lookup("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint),
		OtelExporterProtocol: defaultProtocol,
		OtelSamplingRatio:    1,
	}
	if !cfg.IsProduction() {
		out.LogFormat = "console"
	} else {
		out.OtelSamplingRatio = productionSamplingRatio
	}

	out.LogFormat = strings.ToLower(lookup("LOG_FORMAT", out.LogFormat))
	out.OtelExporterProtocol = strings.ToLower(firstNonEmpty(
		os.Getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL"),
		os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"),
		out.OtelExporterProtocol,
	))
	if v, ok := lookupBool("OTEL_ENABLED"); ok {
		out.OtelEnabled = v
	}
	if v, ok := lookupRatio("OTEL_SAMPLING_RATIO"); ok {
		out.OtelSamplingRatio = v
	}
	return out
}

// Debug enables verbose request logging.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func lookup(key, def string) string {
	return firstNonEmpty(os.Getenv(key), def)
}

func lookupBool(key string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}

// lookupRatio ignores values outside [0, 1].
func lookupRatio(key string) (float64, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || v > 1 {
		return 0, false
	}
	return v, true
}
