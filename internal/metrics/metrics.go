// Package metrics installs the global OpenTelemetry meter provider and serves
// the Prometheus scrape endpoint.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/logger"
)

type MetricProvider interface {
	Meter(name string, options ...metric.MeterOption) metric.Meter
	Shutdown(ctx context.Context) error
}

func getReaders(ctx context.Context, cfg Config) ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader

	if cfg.Prometheus {
		promExporter, err := prometheus.New()
		if err != nil {
			return nil, err
		}
		readers = append(readers, promExporter)
	}

	if t := cfg.OTLP; t != nil {
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpointURL(t.Endpoint),
			otlpmetricgrpc.WithHeaders(t.Headers),
		}
		if t.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, err
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(cfg.ExportInterval)))
	}

	return readers, nil
}

// NewMetricProvider builds one reader per configured provider and installs the
// result as the global meter provider.
func NewMetricProvider(ctx context.Context, options ...OptionFn) (MetricProvider, error) {
	cfg := buildConfig(options)
	readers, err := getReaders(ctx, cfg)
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("metric readers"))
	}

	metricsOps := []sdkmetric.Option{
		sdkmetric.WithResource(resource.NewSchemaless(semconv.ServiceNameKey.String(cfg.ServiceName))),
	}
	for _, reader := range readers {
		metricsOps = append(metricsOps, sdkmetric.WithReader(reader))
	}

	meterProvider := sdkmetric.NewMeterProvider(metricsOps...)
	otel.SetMeterProvider(meterProvider)

	return meterProvider, nil
}

// PromServer serves /metrics from the default Prometheus registry.
type PromServer struct {
	server *http.Server
	logger logger.LoggerInterface
}

// NewPromServer listens on port, or 2223 when port is zero.
func NewPromServer(port int, log logger.LoggerInterface) *PromServer {
	if port == 0 {
		port = defaultPromPort
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &PromServer{
		server: &http.Server{
			Addr:              ":" + strconv.Itoa(port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: log,
	}
}

// Start serves in the background.
func (s *PromServer) Start(ctx context.Context) {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn(ctx, "metrics server stopped", "error", err)
		}
	}()
	s.logger.Info(ctx, "serving metrics", "addr", s.server.Addr+"/metrics")
}

func (s *PromServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
