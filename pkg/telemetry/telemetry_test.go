package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "default is valid",
			mutate: func(*Config) {},
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: true,
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: true,
		},
		{
			name: "bad exporter when tracing enabled",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.Exporter = "jaeger"
			},
			wantErr: true,
		},
		{
			name:    "sampling rate out of range",
			mutate:  func(c *Config) { c.Tracing.SamplingRate = 1.5 },
			wantErr: true,
		},
		{
			name:    "missing service name",
			mutate:  func(c *Config) { c.ServiceName = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")

	logger, err := NewLogger(LoggingConfig{Level: "info", Format: "json", FilePath: path})
	if err != nil {
		t.Fatalf("NewLogger() error: %v", err)
	}

	logger.NewComponentLogger("pipeline").Info("provisioning started")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "provisioning started") {
		t.Errorf("log file missing message: %s", data)
	}
	if !strings.Contains(string(data), `"component":"pipeline"`) {
		t.Errorf("log file missing component field: %s", data)
	}
}

func TestEventPublisherFanOutInOrder(t *testing.T) {
	pub := NewEventPublisher("run-1")

	var got []Event
	pub.Subscribe(func(e Event) { got = append(got, e) })

	pub.Publish(EventTypePackageInstalled, EventLevelInfo, "git", "installed")
	pub.Publish(EventTypePackageFailed, EventLevelError, "tlp", "exhausted retries")

	if len(got) != 2 {
		t.Fatalf("delivered %d events, want 2", len(got))
	}
	if got[0].Type != EventTypePackageInstalled || got[1].Type != EventTypePackageFailed {
		t.Errorf("events out of order: %v", got)
	}
	for _, e := range got {
		if e.RunID != "run-1" {
			t.Errorf("event missing run id: %+v", e)
		}
		if e.ID == "" || e.Timestamp.IsZero() {
			t.Errorf("event not stamped: %+v", e)
		}
	}
}

func TestMetricsDisabledIsNoop(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewMetrics() error: %v", err)
	}
	// Must not panic.
	m.RecordRun("completed", time.Second)
	m.RecordPackage("installed")
	m.RecordAttempt(time.Millisecond)
}

func TestMetricsExposesCounters(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: true, Namespace: "hostprep"})
	if err != nil {
		t.Fatalf("NewMetrics() error: %v", err)
	}

	m.RecordPackage("installed")
	m.RecordPackage("installed")
	m.RecordPackage("failed")
	m.RecordAttempt(50 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, `hostprep_packages_processed_total{outcome="installed"} 2`) {
		t.Errorf("installed counter missing:\n%s", body)
	}
	if !strings.Contains(body, `hostprep_packages_processed_total{outcome="failed"} 1`) {
		t.Errorf("failed counter missing:\n%s", body)
	}
	if !strings.Contains(body, "hostprep_install_attempts_total 1") {
		t.Errorf("attempt counter missing:\n%s", body)
	}
}

func TestTracerDisabled(t *testing.T) {
	tr, err := NewTracer(TracingConfig{Enabled: false}, "hostprep", "test")
	if err != nil {
		t.Fatalf("NewTracer() error: %v", err)
	}

	ctx, span := tr.StartRunSpan(context.Background(), "run-1")
	if ctx == nil || span == nil {
		t.Fatal("disabled tracer must still produce spans")
	}
	span.End()

	if err := tr.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error: %v", err)
	}
}
