package notify

import (
	"fmt"
	"io"
	"strings"

	"github.com/kdltmhl/mc-ip-scanner/scanner"
)

var rule = strings.Repeat("=", 60)

// PrintRecord writes the human-readable found-server block.
func PrintRecord(w io.Writer, rec scanner.ServerRecord) {
	whitelist := "No/Unknown"
	if rec.PossibleWhitelist {
		whitelist = "Yes"
	}

	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintf(w, "MINECRAFT SERVER FOUND: %s:%d\n", rec.IP, rec.Port)
	fmt.Fprintf(w, "%s\n", rule)
	fmt.Fprintf(w, "Version: %s\n", rec.Version)
	fmt.Fprintf(w, "Players: %d/%d\n", rec.PlayersOnline, rec.PlayersMax)
	fmt.Fprintf(w, "Latency: %.1fms\n", rec.LatencyMs)
	fmt.Fprintf(w, "Possible Whitelist: %s\n", whitelist)
	fmt.Fprintf(w, "Description: %s\n", rec.Description)
	if len(rec.PlayerSamples) > 0 {
		fmt.Fprintf(w, "Online Players: %s\n", joinSamples(rec.PlayerSamples))
	}
	fmt.Fprintf(w, "%s\n\n", rule)
}

func joinSamples(samples []scanner.PlayerSample) string {
	names := make([]string, len(samples))
	for i, s := range samples {
		names[i] = s.Name
	}
	return strings.Join(names, ", ")
}
