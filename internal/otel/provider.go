// Package otel wires the OpenTelemetry log pipeline consumed by the
// slog bridge in internal/logging.
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Config struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	LogWriter    io.Writer // local export target, required unless Endpoint is set
	Endpoint     string    // optional OTLP HTTP collector
	Insecure     bool
}

// Provider owns the configured log provider. A disabled Provider is
// valid and every method on it is a no-op.
type Provider struct {
	logs    *sdklog.LoggerProvider
	enabled bool
}

// New builds the log provider from cfg. At least one export target
// must be configured when enabled.
func New(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}

	ctx := context.Background()
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	targets := 0

	if cfg.LogWriter != nil {
		exp, err := stdoutlog.New(
			stdoutlog.WithWriter(cfg.LogWriter),
			stdoutlog.WithPrettyPrint(),
		)
		if err != nil {
			return nil, fmt.Errorf("file log exporter: %w", err)
		}
		opts = append(opts, sdklog.WithProcessor(batched(exp, cfg.BatchTimeout)))
		targets++
	}

	if cfg.Endpoint != "" {
		otlpOpts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			otlpOpts = append(otlpOpts, otlploghttp.WithInsecure())
		}
		exp, err := otlploghttp.New(ctx, otlpOpts...)
		if err != nil {
			return nil, fmt.Errorf("otlp log exporter: %w", err)
		}
		opts = append(opts, sdklog.WithProcessor(batched(exp, cfg.BatchTimeout)))
		targets++
	}

	if targets == 0 {
		return nil, errors.New("otel enabled without a log writer or endpoint")
	}

	return &Provider{
		logs:    sdklog.NewLoggerProvider(opts...),
		enabled: true,
	}, nil
}

func batched(exp sdklog.Exporter, timeout time.Duration) sdklog.Processor {
	return sdklog.NewBatchProcessor(exp, sdklog.WithExportTimeout(timeout))
}

// LoggerProvider returns the log provider for the otelslog bridge, or
// nil when disabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logs
}

// Flush exports all pending records. Called at scenario end so nothing
// is lost before teardown.
func (p *Provider) Flush(ctx context.Context) error {
	if p.logs == nil {
		return nil
	}
	if err := p.logs.ForceFlush(ctx); err != nil {
		return fmt.Errorf("log flush: %w", err)
	}
	return nil
}

// Shutdown stops the provider. Call once on process exit.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.logs == nil {
		return nil
	}
	if err := p.logs.Shutdown(ctx); err != nil {
		return fmt.Errorf("log shutdown: %w", err)
	}
	return nil
}

func (p *Provider) Enabled() bool {
	return p.enabled
}
