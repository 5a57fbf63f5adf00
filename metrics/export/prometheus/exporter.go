package prometheus

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	admsession "github.com/imoveisdeluxo/admsession"
	"github.com/imoveisdeluxo/admsession/metrics/export/internaldefs"
	"github.com/imoveisdeluxo/admsession/session"
)

const contentType = "text/plain; version=0.0.4; charset=utf-8"

type metricsSource interface {
	MetricsSnapshot() admsession.MetricsSnapshot
	AuditDropped() uint64
}

// statusSource is implemented by sources that also expose the session status.
type statusSource interface {
	Status() session.Status
}

// PrometheusExporter renders console metrics in the text exposition format.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter reads from console.
func NewPrometheusExporter(console *admsession.Console) *PrometheusExporter {
	return &PrometheusExporter{source: console}
}

// NewPrometheusExporterFromSource reads from any snapshot source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves Render.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = io.WriteString(w, p.Render())
	})
}

// Render returns the current metrics, or "" when metrics are disabled.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snap := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	for _, def := range internaldefs.CounterDefs {
		header(&b, def.Name, def.Help, "counter")
		fmt.Fprintf(&b, "%s %d\n", def.Name, snap.Counters[def.ID])
	}

	for _, def := range internaldefs.HistogramDefs {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[def.ID]))
		header(&b, def.Name, def.Help, "histogram")
		for i, le := range internaldefs.HistogramBounds {
			fmt.Fprintf(&b, "%s_bucket{le=%q} %d\n", def.Name, le, cumulative[i])
		}
		fmt.Fprintf(&b, "%s_count %d\n", def.Name, cumulative[len(cumulative)-1])
		// Buckets are all the console keeps; the sum is not tracked.
		fmt.Fprintf(&b, "%s_sum 0\n", def.Name)
	}

	if s, ok := p.source.(statusSource); ok {
		const name = "admsession_session_status"
		header(&b, name, "1 for the console's current session status.", "gauge")
		current := s.Status()
		for _, st := range []session.Status{session.StatusLoading, session.StatusAuthenticated, session.StatusUnauthenticated} {
			v := 0
			if st == current {
				v = 1
			}
			fmt.Fprintf(&b, "%s{status=%q} %d\n", name, st.String(), v)
		}
	}

	const droppedName = "admsession_audit_dropped_total"
	header(&b, droppedName, "Audit events dropped because the dispatcher queue was full.", "counter")
	fmt.Fprintf(&b, "%s %d\n", droppedName, dropped)

	return b.String()
}

func header(b *strings.Builder, name, help, kind string) {
	help = strings.ReplaceAll(help, `\`, `\\`)
	help = strings.ReplaceAll(help, "\n", `\n`)
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}
