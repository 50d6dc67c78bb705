package manager

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Renderer turns a Snapshot into user-facing output. The default writes
// a plain-text panel; a TUI can swap in its own.
type Renderer interface {
	Render(w io.Writer, snap Snapshot) error
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(w io.Writer, snap Snapshot) error

// Render implements Renderer.
func (f RendererFunc) Render(w io.Writer, snap Snapshot) error { return f(w, snap) }

// ShowStatusPanel renders the current snapshot to w.
func (m *Manager) ShowStatusPanel(w io.Writer) error {
	return m.renderer.Render(w, m.Status())
}

type textRenderer struct{}

func (textRenderer) Render(w io.Writer, snap Snapshot) error {
	var b strings.Builder

	b.WriteString("Network Status\n")
	b.WriteString("--------------\n")
	fmt.Fprintf(&b, "Connection:      %s\n", snap.Network)
	fmt.Fprintf(&b, "Circuit breaker: %s\n", snap.Breaker.State)
	if !snap.Breaker.OpenedAt.IsZero() {
		fmt.Fprintf(&b, "Breaker opened:  %s\n", snap.Breaker.OpenedAt.Format(time.RFC3339))
	}

	b.WriteString("\nRequests\n")
	b.WriteString("--------\n")
	fmt.Fprintf(&b, "Total:     %d\n", snap.Metrics.TotalRequests)
	fmt.Fprintf(&b, "Succeeded: %d\n", snap.Metrics.SuccessfulRequests)
	fmt.Fprintf(&b, "Failed:    %d\n", snap.Metrics.FailedRequests)
	fmt.Fprintf(&b, "Retried:   %d\n", snap.Metrics.RetriedRequests)
	if snap.Metrics.AverageResponseTime > 0 {
		fmt.Fprintf(&b, "Avg latency: %s\n", snap.Metrics.AverageResponseTime.Round(time.Millisecond))
	}

	b.WriteString("\nQueue\n")
	b.WriteString("-----\n")
	fmt.Fprintf(&b, "Queued: %d\n", snap.Queue.Queued)
	fmt.Fprintf(&b, "Active: %d\n", snap.Queue.Active)

	if n := len(snap.History); n > 0 {
		b.WriteString("\nRecent Transitions\n")
		b.WriteString("------------------\n")
		// Newest last, at most five lines.
		start := n - 5
		if start < 0 {
			start = 0
		}
		for _, tr := range snap.History[start:] {
			fmt.Fprintf(&b, "%s  %s\n", tr.At.Format("15:04:05"), tr.Status)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
