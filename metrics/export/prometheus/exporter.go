package prometheus

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/metrics/export/internaldefs"
)

// Source is satisfied by *authflow.Engine.
type Source interface {
	MetricsSnapshot() authflow.MetricsSnapshot
	AuditDropped() uint64
}

type Exporter struct {
	source Source
}

func New(source Source) *Exporter {
	return &Exporter{source: source}
}

func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = io.WriteString(w, e.Render())
	})
}

// Render returns the current exposition. Disabled metrics render as an
// empty document.
func (e *Exporter) Render() string {
	if e == nil || e.source == nil {
		return ""
	}
	snap := e.source.MetricsSnapshot()
	dropped := e.source.AuditDropped()
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	for _, c := range internaldefs.Counters {
		writeCounter(&b, c.Name, c.Help, snap.Counters[c.ID])
	}
	if raw, ok := snap.Histograms[authflow.MetricNotifyLatency]; ok {
		writeHistogram(&b, internaldefs.NotifyLatencyName, internaldefs.NotifyLatencyHelp, internaldefs.Cumulative(raw))
	}
	writeCounter(&b, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, dropped)
	return b.String()
}

func writeCounter(b *strings.Builder, name, help string, v uint64) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", name, escapeHelp(help), name, name, v)
}

// The engine does not track a latency sum, so _sum is always 0.
func writeHistogram(b *strings.Builder, name, help string, cumulative []uint64) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s histogram\n", name, escapeHelp(help), name)
	for i, le := range internaldefs.Bounds {
		fmt.Fprintf(b, "%s_bucket{le=%q} %d\n", name, le, cumulative[i])
	}
	fmt.Fprintf(b, "%s_sum 0\n%s_count %d\n", name, name, cumulative[len(cumulative)-1])
}

func escapeHelp(help string) string {
	return strings.NewReplacer(`\`, `\\`, "\n", `\n`).Replace(help)
}
