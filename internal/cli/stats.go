package cli

import (
	"fmt"
	"io"

	"github.com/raphaelgruber/medilink-console/internal/metrics"
)

// opTitles are the display names of the recorded API operations.
var opTitles = map[string]string{
	metrics.OpListHospitals: "List Hospitals",
	metrics.OpListPatients:  "List Patients",
	metrics.OpIdentify:      "Identify Patient",
	metrics.OpChatQuery:     "Chat Query",
	metrics.OpTranslate:     "Translate Jargon",
	metrics.OpShareHistory:  "Share History",
	metrics.OpAllocate:      "Allocate",
	metrics.OpRegister:      "Register Patient",
}

// printStats displays API call statistics.
func printStats(w io.Writer, snap metrics.Snapshot) {
	fmt.Fprintf(w, "API Statistics (this run)\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════\n")
	fmt.Fprintf(w, "Uptime: %.1f seconds\n", snap.UptimeSeconds)

	if len(snap.Operations) == 0 {
		fmt.Fprintf(w, "\nNo API calls made.\n")
		return
	}

	for _, op := range snap.Operations {
		title, ok := opTitles[op.Op]
		if !ok {
			title = op.Op
		}
		fmt.Fprintf(w, "\n%s:\n", title)
		printOpStats(w, op)
	}
}

// printOpStats displays timing statistics for an operation.
func printOpStats(w io.Writer, op metrics.OperationSnapshot) {
	fmt.Fprintf(w, "  Calls: %d, Total: %dms\n", op.Count, op.TotalTimeMs)
	fmt.Fprintf(w, "  Time: avg %.1fms, min %dms, max %dms\n",
		op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
	if op.Failures > 0 {
		fmt.Fprintf(w, "  Failures: %d\n", op.Failures)
	}
}
