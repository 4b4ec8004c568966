package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	gcs "github.com/YakupTekeli/Ground-Control-Station-for-ESP32-and-ESP32-Camera"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	badColor  = color.New(color.FgRed)
	infoColor = color.New(color.FgCyan)
)

func printBanner(w io.Writer, title string, lines [][2]string) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║  %-55s  ║\n", title+" - gcs "+version)
	fmt.Fprintf(w, "╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Configuration:\n")
	for _, l := range lines {
		fmt.Fprintf(w, "  %-15s %s\n", l[0]+":", l[1])
	}
	fmt.Fprintf(w, "\n")
}

// stateColor highlights how healthy a producer state is.
func stateColor(state string) *color.Color {
	switch state {
	case "running-managed-decoder", "running-manual", "polling":
		return okColor
	case "selecting-candidate":
		return warnColor
	default:
		return badColor
	}
}

func printStats(w io.Writer, stats gcs.Stats) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "╭─────────────────────────────────────────────────────────╮\n")
	fmt.Fprintf(w, "│ %s %s (Uptime: %s)\n", stats.Kind, shortID(stats.SessionID), stats.Uptime.Round(time.Second))
	fmt.Fprintf(w, "├─────────────────────────────────────────────────────────┤\n")
	fmt.Fprintf(w, "│ State:              %s\n", stateColor(stats.State).Sprint(stats.State))
	if stats.Candidate != "" {
		fmt.Fprintf(w, "│ Candidate:          %s\n", infoColor.Sprint(stats.Candidate))
	}
	fmt.Fprintf(w, "│ Frames:             %6d frames\n", stats.FrameCount)
	if stats.FramesDropped > 0 {
		fmt.Fprintf(w, "│ Sink Drops:         %6d frames (%.1f%%)\n", stats.FramesDropped, stats.DropRate)
	}
	if stats.DecodeErrors > 0 {
		fmt.Fprintf(w, "│ Corrupt JPEGs:      %6d\n", stats.DecodeErrors)
	}
	fmt.Fprintf(w, "│ FPS:                %6.2f fps\n", stats.FPS)
	if stats.LatencyMS >= 0 {
		fmt.Fprintf(w, "│ Last Frame:         %6d ms ago\n", stats.LatencyMS)
	}
	fmt.Fprintf(w, "│ Bytes Read:         %6.2f MB\n", float64(stats.BytesRead)/1024/1024)
	fmt.Fprintf(w, "│ Attempts:           %6d\n", stats.Attempts)
	fmt.Fprintf(w, "│ Reconnects:         %6d\n", stats.Reconnects)

	totalErrors := stats.ErrorsNetwork + stats.ErrorsCodec + stats.ErrorsAuth + stats.ErrorsUnknown
	if totalErrors > 0 {
		fmt.Fprintf(w, "├─────────────────────────────────────────────────────────┤\n")
		fmt.Fprintf(w, "│ Managed Decoder Errors\n")
		fmt.Fprintf(w, "├─────────────────────────────────────────────────────────┤\n")
		fmt.Fprintf(w, "│ Network Errors:     %6d\n", stats.ErrorsNetwork)
		fmt.Fprintf(w, "│ Codec Errors:       %6d\n", stats.ErrorsCodec)
		fmt.Fprintf(w, "│ Auth Errors:        %6d\n", stats.ErrorsAuth)
		fmt.Fprintf(w, "│ Unknown Errors:     %6d\n", stats.ErrorsUnknown)
	}
	fmt.Fprintf(w, "╰─────────────────────────────────────────────────────────╯\n")
	fmt.Fprintf(w, "\n")
}

func printWarmup(w io.Writer, s *gcs.WarmupStats) {
	stable := okColor.Sprint("yes")
	if !s.IsStable {
		stable = warnColor.Sprint("no")
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "╭─────────────────────────────────────────────────────────╮\n")
	fmt.Fprintf(w, "│ Probe Complete\n")
	fmt.Fprintf(w, "├─────────────────────────────────────────────────────────┤\n")
	fmt.Fprintf(w, "│ Frames Received:    %6d frames\n", s.FramesReceived)
	fmt.Fprintf(w, "│ Duration:           %6.1f seconds\n", s.Duration.Seconds())
	fmt.Fprintf(w, "│ FPS Mean:           %6.2f fps\n", s.FPSMean)
	fmt.Fprintf(w, "│ FPS StdDev:         %6.2f fps\n", s.FPSStdDev)
	fmt.Fprintf(w, "│ FPS Range:          %6.1f - %.1f fps\n", s.FPSMin, s.FPSMax)
	fmt.Fprintf(w, "│ Jitter Mean:        %6.3f s\n", s.JitterMean)
	fmt.Fprintf(w, "│ Jitter Max:         %6.3f s\n", s.JitterMax)
	fmt.Fprintf(w, "│ Stable:             %6s\n", stable)
	fmt.Fprintf(w, "╰─────────────────────────────────────────────────────────╯\n")

	if !s.IsStable {
		fmt.Fprintf(w, "\n%s\n", warnColor.Sprint("⚠️  WARNING: Stream is unstable (high FPS variance or jitter)"))
	}
	fmt.Fprintf(w, "\n")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
