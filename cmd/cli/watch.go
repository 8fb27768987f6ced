package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/yourusername/pulldown-go/internal/app"
	"github.com/yourusername/pulldown-go/internal/domain"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow live download progress",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		showTasks, _ := cmd.Flags().GetBool("tasks")

		conn, _, err := websocket.DefaultDialer.Dial(feedURL(serverURL), nil)
		if err != nil {
			fail(err)
		}
		defer conn.Close()

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)
		go func() {
			<-interrupt
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
		}()

		seen := make(map[string]bool)
		for {
			var view app.View
			if err := conn.ReadJSON(&view); err != nil {
				return
			}
			renderViewLine(os.Stdout, view)
			for _, n := range unseenNotices(seen, view.Notices) {
				fmt.Fprintf(os.Stdout, "  ! %s\n", n.Message)
			}
			if showTasks {
				renderTasks(os.Stdout, view.Tasks)
			}
		}
	},
}

// feedURL maps the agent URL onto its view feed
func feedURL(server string) string {
	base := strings.TrimRight(server, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/api/v1/ws"
}

// unseenNotices returns the notices not reported before and marks them seen
func unseenNotices(seen map[string]bool, notices []domain.Notice) []domain.Notice {
	var fresh []domain.Notice
	for _, n := range notices {
		if !seen[n.ID] {
			seen[n.ID] = true
			fresh = append(fresh, n)
		}
	}
	return fresh
}

func renderViewLine(w io.Writer, view app.View) {
	fmt.Fprintf(w, "[%s] %d tasks | %d downloading | %d paused | %d completed | %d failed | %s | %d notices\n",
		view.Connection,
		view.Stats.Total,
		view.Stats.ActiveDownloadCount,
		view.Stats.PausedCount,
		view.Stats.CompletedCount,
		view.Stats.ErrorCount,
		humanize.Bytes(uint64(view.Stats.TotalDownloadedBytes)),
		len(view.Notices))
}
