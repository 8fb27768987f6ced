package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yourusername/pulldown-go/internal/app"
	"github.com/yourusername/pulldown-go/internal/domain"
)

func renderTasks(w io.Writer, tasks []domain.Task) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSTATUS\tPROGRESS\tSIZE\tURL")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%5.1f%%\t%s\t%s\n",
			truncate(t.FileName, 32),
			t.Status,
			t.Progress,
			formatSize(t),
			truncate(t.URL, 48))
	}
	tw.Flush()
}

func renderStats(w io.Writer, stats domain.TaskStats) {
	fmt.Fprintln(w, "Download Statistics:")
	fmt.Fprintf(w, "  Total:       %d\n", stats.Total)
	fmt.Fprintf(w, "  Downloading: %d\n", stats.ActiveDownloadCount)
	fmt.Fprintf(w, "  Paused:      %d\n", stats.PausedCount)
	fmt.Fprintf(w, "  Queued:      %d\n", stats.QueuedCount)
	fmt.Fprintf(w, "  Completed:   %d\n", stats.CompletedCount)
	fmt.Fprintf(w, "  Error:       %d\n", stats.ErrorCount)
	fmt.Fprintf(w, "  Downloaded:  %s\n", humanize.Bytes(uint64(stats.TotalDownloadedBytes)))

	categories := make([]string, 0, len(stats.ByCategory))
	for c := range stats.ByCategory {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)
	if len(categories) > 0 {
		fmt.Fprintln(w, "  By category:")
		for _, c := range categories {
			fmt.Fprintf(w, "    %-6s %d\n", c, stats.ByCategory[domain.Category(c)])
		}
	}
}

func renderTask(w io.Writer, t domain.Task) {
	fmt.Fprintln(w, "Task Details:")
	fmt.Fprintf(w, "  File:     %s\n", t.FileName)
	fmt.Fprintf(w, "  URL:      %s\n", t.URL)
	fmt.Fprintf(w, "  Status:   %s\n", t.Status)
	fmt.Fprintf(w, "  Progress: %.1f%%\n", t.Progress)
	fmt.Fprintf(w, "  Size:     %s\n", formatSize(t))
	if c := domain.CategoryOf(t.FileName); c != "" {
		fmt.Fprintf(w, "  Category: %s\n", c)
	}
}

func renderDiagnostics(w io.Writer, report app.DiagnosticsReport) {
	fmt.Fprintln(w, "Faults this session:")
	renderFaultStats(w, report.Session)
	if report.Journal != nil {
		fmt.Fprintln(w, "Faults in journal:")
		renderFaultStats(w, *report.Journal)
	}

	if len(report.Recent) == 0 {
		return
	}
	fmt.Fprintln(w, "Recent faults:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tKIND\tTASK\tDETAIL")
	for _, f := range report.Recent {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			humanize.Time(f.CreatedAt),
			f.Kind,
			truncate(f.TaskID, 40),
			truncate(f.Detail, 60))
	}
	tw.Flush()
}

func renderNotices(w io.Writer, notices []domain.Notice) {
	if len(notices) == 0 {
		fmt.Fprintln(w, "No notices")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tKIND\tID\tMESSAGE")
	for _, n := range notices {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			humanize.Time(n.CreatedAt),
			n.Kind,
			n.ID,
			truncate(n.Message, 80))
	}
	tw.Flush()
}

// startFailure finds a start failure for taskID raised at or after since
func startFailure(notices []domain.Notice, taskID string, since time.Time) (domain.Notice, bool) {
	for _, n := range notices {
		if n.Kind == domain.NoticeStartFailed && n.TaskID == taskID && !n.CreatedAt.Before(since) {
			return n, true
		}
	}
	return domain.Notice{}, false
}

func renderFaultStats(w io.Writer, s domain.FaultStats) {
	fmt.Fprintf(w, "  Total:           %d\n", s.Total)
	fmt.Fprintf(w, "  Transport:       %d\n", s.Transport)
	fmt.Fprintf(w, "  Dropped sends:   %d\n", s.DroppedSend)
	fmt.Fprintf(w, "  Decode:          %d\n", s.Decode)
	fmt.Fprintf(w, "  Orphan progress: %d\n", s.OrphanProgress)
	fmt.Fprintf(w, "  Command:         %d\n", s.Command)
}

func formatSize(t domain.Task) string {
	if t.TotalSize <= 0 {
		return "-"
	}
	return humanize.Bytes(uint64(t.Downloaded)) + " / " + humanize.Bytes(uint64(t.TotalSize))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
