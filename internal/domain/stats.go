package domain

// TaskStats holds the aggregates recomputed after every store mutation
type TaskStats struct {
	Total                int              `json:"total"`
	ActiveDownloadCount  int              `json:"activeDownloadCount"`
	CompletedCount       int              `json:"completedCount"`
	ErrorCount           int              `json:"errorCount"`
	PausedCount          int              `json:"pausedCount"`
	QueuedCount          int              `json:"queuedCount"`
	TotalDownloadedBytes int64            `json:"totalDownloadedBytes"`
	ByCategory           map[Category]int `json:"byCategory"`
}

// ComputeStats derives aggregates from a task collection
func ComputeStats(tasks []Task) TaskStats {
	stats := TaskStats{
		Total:      len(tasks),
		ByCategory: make(map[Category]int, len(AllCategories)),
	}
	for _, c := range AllCategories {
		stats.ByCategory[c] = 0
	}

	for _, t := range tasks {
		switch t.Status {
		case StatusDownloading:
			stats.ActiveDownloadCount++
		case StatusCompleted:
			stats.CompletedCount++
		case StatusError:
			stats.ErrorCount++
		case StatusPaused:
			stats.PausedCount++
		case StatusQueued:
			stats.QueuedCount++
		}
		stats.TotalDownloadedBytes += t.Downloaded
		if c := CategoryOf(t.FileName); c != "" {
			stats.ByCategory[c]++
		}
	}

	return stats
}

// CountStatus returns the count for a single status
func (s TaskStats) CountStatus(status TaskStatus) int {
	switch status {
	case StatusDownloading:
		return s.ActiveDownloadCount
	case StatusCompleted:
		return s.CompletedCount
	case StatusError:
		return s.ErrorCount
	case StatusPaused:
		return s.PausedCount
	case StatusQueued:
		return s.QueuedCount
	}
	return 0
}
