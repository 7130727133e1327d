package export

import (
	"context"

	"xbookmarks/pkg/session"
)

// GatedExporter runs the session gate in front of the exporter. A
// trigger that lands before capture finishes waits out the gate's
// attempt budget instead of failing instantly; the timeout that follows
// names the fields that never showed up.
type GatedExporter struct {
	gate     *session.Gate
	exporter *Exporter
}

// NewGated wraps an exporter with a session gate.
func NewGated(gate *session.Gate, exporter *Exporter) *GatedExporter {
	return &GatedExporter{gate: gate, exporter: exporter}
}

// Run waits for a complete session, then executes the export.
func (g *GatedExporter) Run(ctx context.Context) (*Result, error) {
	if err := g.gate.AwaitReady(ctx); err != nil {
		return nil, err
	}
	return g.exporter.Run(ctx)
}
