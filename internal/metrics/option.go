package metrics

import "time"

const (
	defaultPromPort       = 2223
	defaultExportInterval = 30 * time.Second
)

// Config selects where instruments are exported. Prometheus and OTLP can be
// enabled together.
type Config struct {
	ServiceName    string
	Prometheus     bool
	OTLP           *OTLPTarget
	ExportInterval time.Duration
}

// OTLPTarget is a gRPC collector endpoint, e.g. "http://localhost:4317".
type OTLPTarget struct {
	Endpoint string
	Headers  map[string]string
	Insecure bool
}

type OptionFn func(config Config) Config

func WithServiceName(serviceName string) OptionFn {
	return func(config Config) Config {
		config.ServiceName = serviceName
		return config
	}
}

// WithPrometheus registers a pull reader on the default Prometheus registry,
// served by PromServer.
func WithPrometheus() OptionFn {
	return func(config Config) Config {
		config.Prometheus = true
		return config
	}
}

// WithOTLP pushes to a collector every export interval. An empty endpoint is
// ignored.
func WithOTLP(endpoint string, headers map[string]string, insecure bool) OptionFn {
	return func(config Config) Config {
		if endpoint != "" {
			config.OTLP = &OTLPTarget{Endpoint: endpoint, Headers: headers, Insecure: insecure}
		}
		return config
	}
}

func WithExportInterval(d time.Duration) OptionFn {
	return func(config Config) Config {
		config.ExportInterval = d
		return config
	}
}

func buildConfig(options []OptionFn) Config {
	cfg := Config{ExportInterval: defaultExportInterval}
	for _, opt := range options {
		cfg = opt(cfg)
	}
	if cfg.ExportInterval <= 0 {
		cfg.ExportInterval = defaultExportInterval
	}
	return cfg
}
