package telemetry

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	g := NewWithT(t)
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		g.Expect(ParseLevel(tt.in)).To(Equal(tt.want), "level %q", tt.in)
	}
}

func TestJSONLogger(t *testing.T) {
	g := NewWithT(t)
	var buf bytes.Buffer
	log := Component(NewLoggerTo(&buf, LoggingConfig{Level: "warn", Format: "json"}), "optim")

	log.Info().Msg("hidden")
	log.Warn().Int("evaluations", 7).Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	g.Expect(lines).To(HaveLen(1))

	var entry map[string]any
	g.Expect(json.Unmarshal([]byte(lines[0]), &entry)).To(Succeed())
	g.Expect(entry).To(HaveKeyWithValue("component", "optim"))
	g.Expect(entry).To(HaveKeyWithValue("message", "shown"))
	g.Expect(entry).To(HaveKeyWithValue("evaluations", float64(7)))
}

func TestMetrics(t *testing.T) {
	g := NewWithT(t)
	m := NewMetrics(DefaultMetricsConfig())

	m.RunStarted()
	m.ObserveProgress(100, -3.5, -3.9)
	m.ObserveProgress(50, -3.95, -3.95)
	m.RunFinished(true, 2*time.Second)

	g.Expect(testutil.ToFloat64(m.evaluations)).To(Equal(150.0))
	g.Expect(testutil.ToFloat64(m.best)).To(Equal(-3.95))
	g.Expect(testutil.ToFloat64(m.runs.WithLabelValues("true"))).To(Equal(1.0))
	g.Expect(testutil.ToFloat64(m.activeRuns)).To(Equal(0.0))

	expected := `
# HELP qpulse_evaluations_total Total number of objective evaluations
# TYPE qpulse_evaluations_total counter
qpulse_evaluations_total 150
`
	g.Expect(testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "qpulse_evaluations_total")).To(Succeed())
}

func TestMetricsHandler(t *testing.T) {
	g := NewWithT(t)
	m := NewMetrics(DefaultMetricsConfig())
	m.SetUnitarity(1e-14)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	g.Expect(rec.Code).To(Equal(200))
	g.Expect(rec.Body.String()).To(ContainSubstring("qpulse_unitarity_error 1e-14"))
}

func TestDisabledMetricsAreNoops(t *testing.T) {
	g := NewWithT(t)
	m := NewMetrics(MetricsConfig{})
	m.RunStarted()
	m.ObserveProgress(1, 0, 0)
	m.RunFinished(false, time.Second)
	m.SetUnitarity(0)

	g.Expect(m.Enabled()).To(BeFalse())
	g.Expect(m.Registry()).To(BeNil())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	g.Expect(rec.Code).To(Equal(404))
}
