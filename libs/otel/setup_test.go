package otelx

import (
	"context"
	"testing"
)

func withEnv(t *testing.T, env map[string]string) {
	t.Helper()
	prev := lookupEnv
	lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	t.Cleanup(func() { lookupEnv = prev })
}

func TestConfigFromEnvDefaults(t *testing.T) {
	withEnv(t, map[string]string{})
	cfg := ConfigFromEnv("scheduling-service")
	if !cfg.Enabled || !cfg.Insecure || cfg.OTLPEndpoint != "jaeger:4317" || cfg.SampleRatio != 1 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestConfigFromEnvOverrides(t *testing.T) {
	withEnv(t, map[string]string{
		"OTEL_ENABLED":                "0",
		"OTEL_EXPORTER_OTLP_ENDPOINT": " collector:4317 ",
		"OTEL_SAMPLING_RATIO":         "0.25",
	})
	cfg := ConfigFromEnv("svc")
	if cfg.Enabled || cfg.OTLPEndpoint != "collector:4317" || cfg.SampleRatio != 0.25 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	withEnv(t, map[string]string{"OTEL_SAMPLING_RATIO": "7"})
	if cfg := ConfigFromEnv("svc"); cfg.SampleRatio != 1 {
		t.Fatalf("out of range ratio should be ignored, got %v", cfg.SampleRatio)
	}
}

func TestSetupDisabledIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestTraceContextRoundTrip(t *testing.T) {
	_, _ = Setup(context.Background(), Config{Enabled: false})
	const parent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	ctx := ContextWithTraceContext(context.Background(), parent, "")
	got, _ := TraceContextStrings(ctx)
	if got != parent {
		t.Fatalf("expected %q, got %q", parent, got)
	}
	if ContextWithTraceContext(context.Background(), "", "") == nil {
		t.Fatal("empty trace context must return the input context")
	}
}

func TestConfigFromEnvHeadersAndResource(t *testing.T) {
	withEnv(t, map[string]string{
		"OTEL_EXPORTER_OTLP_HEADERS": "x-api-key = abc123, broken, =nokey,tenant=meetsched",
		"SERVICE_VERSION":            "1.4.0",
		"DEPLOY_ENV":                 "staging",
	})
	cfg := ConfigFromEnv("scheduling-service")
	if len(cfg.Headers) != 2 || cfg.Headers["x-api-key"] != "abc123" || cfg.Headers["tenant"] != "meetsched" {
		t.Fatalf("unexpected headers: %v", cfg.Headers)
	}
	if cfg.ServiceVersion != "1.4.0" || cfg.Environment != "staging" {
		t.Fatalf("unexpected resource config: %+v", cfg)
	}

	withEnv(t, map[string]string{})
	if cfg := ConfigFromEnv("svc"); cfg.Headers != nil || cfg.ServiceVersion != "dev" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}
