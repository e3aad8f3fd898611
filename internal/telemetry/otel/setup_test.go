package otel

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestNewProviders_EmptyEndpoint(t *testing.T) {
	ctx := context.Background()
	for _, endpoint := range []string{"", "   "} {
		providers, err := NewProviders(ctx, endpoint, "test-service", false)
		if err != nil {
			t.Fatalf("NewProviders(%q): %v", endpoint, err)
		}
		if providers.TracerProvider == nil || providers.MeterProvider == nil || providers.LoggerProvider == nil {
			t.Fatal("providers should be non-nil")
		}
		if err := providers.Shutdown(ctx); err != nil {
			t.Errorf("shutdown should be no-op for empty endpoint, got error: %v", err)
		}
	}
}

func TestNewProviders_InvalidURL(t *testing.T) {
	ctx := context.Background()
	for _, endpoint := range []string{"http://[invalid", "http://"} {
		t.Run(endpoint, func(t *testing.T) {
			if _, err := NewProviders(ctx, endpoint, "test-service", false); err == nil {
				t.Errorf("NewProviders(%q) expected error", endpoint)
			}
		})
	}
}

func TestDialTarget(t *testing.T) {
	tests := []struct {
		endpoint  string
		insecure  bool
		target    string
		wantPlain bool
	}{
		{"localhost:4317", false, "localhost:4317", true},
		{"http://collector:4317/v1/traces", false, "collector:4317", true},
		{"https://collector:4317", false, "collector:4317", false},
		{"https://collector:4317", true, "collector:4317", true},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			target, plain, err := dialTarget(tt.endpoint, tt.insecure)
			if err != nil {
				t.Fatalf("dialTarget: %v", err)
			}
			if target != tt.target || plain != tt.wantPlain {
				t.Errorf("dialTarget(%q, %v) = %q, %v; want %q, %v", tt.endpoint, tt.insecure, target, plain, tt.target, tt.wantPlain)
			}
		})
	}
}

func TestProviders_SetGlobal(t *testing.T) {
	providers, err := NewProviders(context.Background(), "", "test-service", false)
	if err != nil {
		t.Fatal(err)
	}
	providers.SetGlobal()
	if otel.GetTracerProvider() != providers.TracerProvider {
		t.Error("global tracer provider not set")
	}
}
