package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/yourusername/pulldown-go/api/handlers"
	"github.com/yourusername/pulldown-go/internal/app"
	"github.com/yourusername/pulldown-go/internal/domain"
	"github.com/yourusername/pulldown-go/pkg/logger"
)

const addPollInterval = 250 * time.Millisecond

var (
	serverURL   string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:   "pulldown",
		Short: "PullDown CLI - client for the PullDown download manager",
		Long:  `A command-line interface for submitting, pausing and watching downloads through the local PullDown agent.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9090", "Agent URL")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start the agent if not running")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(pauseAllCmd)
	rootCmd.AddCommand(resumeAllCmd)
	rootCmd.AddCommand(stopAllCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(noticesCmd)
	noticesCmd.AddCommand(noticesDismissCmd)
	rootCmd.AddCommand(diagCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
}

// ensureServer checks if the agent is running and starts it if needed (unless --no-auto-start)
func ensureServer() {
	if noAutoStart {
		return
	}
	if err := ensureServerRunning(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

func client() *apiClient {
	ensureServer()
	return newAPIClient(serverURL)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

var addCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Submit a URL for download",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		wait, _ := cmd.Flags().GetDuration("wait")
		api := client()

		submitted := time.Now()
		var task domain.Task
		if err := api.post("/api/v1/tasks", handlers.TaskURLRequest{URL: args[0]}, &task); err != nil {
			fail(err)
		}

		// the backend answers asynchronously; give it a moment to refuse
		for deadline := submitted.Add(wait); time.Now().Before(deadline); time.Sleep(addPollInterval) {
			var list handlers.NoticeListResponse
			if err := api.get("/api/v1/notices", nil, &list); err != nil {
				break
			}
			if notice, ok := startFailure(list.Notices, task.ID, submitted.Add(-time.Second)); ok {
				fail(errors.New(notice.Message))
			}
		}

		fmt.Println("Download submitted!")
		fmt.Printf("URL:    %s\n", task.URL)
		fmt.Printf("Status: %s\n", task.Status)
	},
}

var noticesCmd = &cobra.Command{
	Use:   "notices",
	Short: "Show notices raised by the agent, such as failed starts",
	Run: func(cmd *cobra.Command, args []string) {
		api := client()
		if clear, _ := cmd.Flags().GetBool("clear"); clear {
			var bulk handlers.BulkResponse
			if err := api.delete("/api/v1/notices", &bulk); err != nil {
				fail(err)
			}
			fmt.Printf("Cleared %d notice(s)\n", bulk.Count)
			return
		}

		var list handlers.NoticeListResponse
		if err := api.get("/api/v1/notices", nil, &list); err != nil {
			fail(err)
		}
		renderNotices(os.Stdout, list.Notices)
	},
}

var noticesDismissCmd = &cobra.Command{
	Use:   "dismiss [id]",
	Short: "Dismiss one notice",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := client().delete("/api/v1/notices/"+url.PathEscape(args[0]), nil); err != nil {
			fail(err)
		}
		fmt.Println("Notice dismissed")
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked downloads",
	Run: func(cmd *cobra.Command, args []string) {
		query := url.Values{}
		if filter, _ := cmd.Flags().GetString("filter"); filter != "" {
			query.Set("filter", filter)
		}
		if search, _ := cmd.Flags().GetString("search"); search != "" {
			query.Set("search", search)
		}

		var list handlers.TaskListResponse
		if err := client().get("/api/v1/tasks", query, &list); err != nil {
			fail(err)
		}

		renderTasks(os.Stdout, list.Tasks)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	Run: func(cmd *cobra.Command, args []string) {
		var stats domain.TaskStats
		if err := client().get("/api/v1/tasks/stats", nil, &stats); err != nil {
			fail(err)
		}
		renderStats(os.Stdout, stats)
	},
}

var getCmd = &cobra.Command{
	Use:   "get [url]",
	Short: "Show one download",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var task domain.Task
		if err := client().get("/api/v1/tasks/lookup", url.Values{"id": {args[0]}}, &task); err != nil {
			fail(err)
		}
		renderTask(os.Stdout, task)
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause [url]",
	Short: "Pause a download",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var task domain.Task
		if err := client().post("/api/v1/tasks/pause", handlers.TaskURLRequest{URL: args[0]}, &task); err != nil {
			fail(err)
		}
		fmt.Printf("%s: %s\n", task.FileName, task.Status)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume [url]",
	Short: "Resume a paused or failed download",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var task domain.Task
		if err := client().post("/api/v1/tasks/resume", handlers.TaskURLRequest{URL: args[0]}, &task); err != nil {
			fail(err)
		}
		fmt.Printf("%s: %s\n", task.FileName, task.Status)
	},
}

var pauseAllCmd = &cobra.Command{
	Use:   "pause-all",
	Short: "Pause every active download",
	Run: func(cmd *cobra.Command, args []string) {
		runBulk("/api/v1/tasks/pause-all", "paused")
	},
}

var resumeAllCmd = &cobra.Command{
	Use:   "resume-all",
	Short: "Resume every paused or failed download",
	Run: func(cmd *cobra.Command, args []string) {
		runBulk("/api/v1/tasks/resume-all", "resumed")
	},
}

var stopAllCmd = &cobra.Command{
	Use:   "stop-all",
	Short: "Stop every active download (pauses them)",
	Run: func(cmd *cobra.Command, args []string) {
		runBulk("/api/v1/tasks/stop-all", "paused")
	},
}

func runBulk(path, verb string) {
	var resp handlers.BulkResponse
	if err := client().post(path, nil, &resp); err != nil {
		fail(err)
	}
	fmt.Printf("%d download(s) %s\n", resp.Count, verb)
	if resp.Message != "" {
		fmt.Printf("Note: %s\n", resp.Message)
	}
}

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Set the session filter and search text",
	Run: func(cmd *cobra.Command, args []string) {
		filter, _ := cmd.Flags().GetString("filter")
		search, _ := cmd.Flags().GetString("search")

		var view app.View
		req := handlers.ViewRequest{Filter: domain.Filter(filter), Search: search}
		if err := client().put("/api/v1/view", req, &view); err != nil {
			fail(err)
		}

		fmt.Printf("Filter: %s  Search: %q\n", view.Filter, view.Search)
		renderTasks(os.Stdout, view.Tasks)
		if len(view.Notices) > 0 {
			fmt.Println()
			renderNotices(os.Stdout, view.Notices)
		}
	},
}

var diagCmd = &cobra.Command{
	Use:   "diag",
	Short: "Show sync diagnostics",
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")

		var report app.DiagnosticsReport
		query := url.Values{"limit": {strconv.Itoa(limit)}}
		if err := client().get("/api/v1/diagnostics", query, &report); err != nil {
			fail(err)
		}
		renderDiagnostics(os.Stdout, report)
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs [category]",
	Short: "Show agent logs (stream, command, error)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		category := args[0]
		if !logger.ValidateCategory(logger.LogCategory(category)) {
			fail(fmt.Errorf("unknown log category %q", category))
		}

		query := url.Values{}
		if date, _ := cmd.Flags().GetString("date"); date != "" {
			query.Set("date", date)
		}
		limit, _ := cmd.Flags().GetInt("limit")
		query.Set("limit", strconv.Itoa(limit))

		path := "/api/v1/logs/" + category
		if search, _ := cmd.Flags().GetString("search"); search != "" {
			path += "/search"
			query.Set("q", search)
		}

		var result struct {
			Entries []logger.LogEntry `json:"entries"`
		}
		if err := client().get(path, query, &result); err != nil {
			fail(err)
		}

		for _, e := range result.Entries {
			fmt.Printf("%s %-5s %s\n", e.Timestamp, e.Level, e.Message)
		}
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default config file",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := filepath.Join(os.Getenv("HOME"), ".pulldown", "config.yaml")
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			fail(fmt.Errorf("%s already exists", path))
		}
		if err := app.SaveConfig(domain.DefaultConfig(), path); err != nil {
			fail(err)
		}
		fmt.Printf("Config written to %s\n", path)
	},
}

func init() {
	addCmd.Flags().Duration("wait", 3*time.Second, "How long to wait for the backend to refuse the download")
	noticesCmd.Flags().Bool("clear", false, "Remove every notice")
	listCmd.Flags().StringP("filter", "f", "", "Filter by status or category (video, music, zip, exe, doc)")
	listCmd.Flags().StringP("search", "s", "", "Search file names and URLs")
	viewCmd.Flags().StringP("filter", "f", string(domain.FilterAll), "Filter by status or category")
	viewCmd.Flags().StringP("search", "s", "", "Search text")
	watchCmd.Flags().BoolP("tasks", "t", false, "Print the task table on every update")
	diagCmd.Flags().IntP("limit", "n", 20, "Number of recent faults to show")
	logsCmd.Flags().StringP("date", "d", "", "Date (YYYY-MM-DD), default today")
	logsCmd.Flags().IntP("limit", "n", 100, "Maximum entries")
	logsCmd.Flags().StringP("search", "s", "", "Only entries containing text")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
