package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		fileName string
		expected Category
	}{
		{"movie.mp4", CategoryVideo},
		{"Movie.MKV", CategoryVideo},
		{"song.flac", CategoryMusic},
		{"backup.7z", CategoryZip},
		{"setup.iso", CategoryExe},
		{"report.pdf", CategoryDoc},
		{"notes.txt", CategoryDoc},
		{"image.png", ""},
		{"Pending...", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			assert.Equal(t, tt.expected, CategoryOf(tt.fileName))
		})
	}
}

func TestFilter_Matches(t *testing.T) {
	movie := Task{FileName: "movie.mp4", Status: StatusDownloading}
	report := Task{FileName: "report.pdf", Status: StatusCompleted}
	image := Task{FileName: "image.png", Status: StatusCompleted}

	assert.True(t, FilterAll.Matches(movie))
	assert.True(t, Filter("").Matches(image))

	assert.True(t, Filter("Completed").Matches(report))
	assert.False(t, Filter("Completed").Matches(movie))

	assert.True(t, Filter("video").Matches(movie))
	assert.False(t, Filter("video").Matches(report))

	for _, c := range AllCategories {
		assert.False(t, Filter(c).Matches(image), "unmapped extension must not match %s", c)
	}
	assert.False(t, Filter("bogus").Matches(movie))
}

func TestMatchesSearch(t *testing.T) {
	task := Task{FileName: "Movie.mp4", URL: "https://Cdn.example.com/v/123"}

	assert.True(t, MatchesSearch(task, ""))
	assert.True(t, MatchesSearch(task, "movie"))
	assert.True(t, MatchesSearch(task, "CDN.EXAMPLE"))
	assert.False(t, MatchesSearch(task, "report"))
}

func TestValidateFilter(t *testing.T) {
	assert.True(t, ValidateFilter(FilterAll))
	assert.True(t, ValidateFilter("Paused"))
	assert.True(t, ValidateFilter("music"))
	assert.False(t, ValidateFilter("invalid"))
}

func TestComputeStats(t *testing.T) {
	tasks := []Task{
		{FileName: "a.mp4", Status: StatusDownloading, Downloaded: 100},
		{FileName: "b.mp3", Status: StatusCompleted, Downloaded: 300},
		{FileName: "c.zip", Status: StatusError},
		{FileName: "d.bin", Status: StatusPaused, Downloaded: 5},
		{FileName: "e.pdf", Status: StatusQueued},
	}

	stats := ComputeStats(tasks)

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 1, stats.ActiveDownloadCount)
	assert.Equal(t, 1, stats.CompletedCount)
	assert.Equal(t, 1, stats.ErrorCount)
	assert.Equal(t, 1, stats.PausedCount)
	assert.Equal(t, 1, stats.QueuedCount)
	assert.Equal(t, int64(405), stats.TotalDownloadedBytes)
	assert.Equal(t, 1, stats.ByCategory[CategoryVideo])
	assert.Equal(t, 0, stats.ByCategory[CategoryExe])
	assert.Equal(t, 1, stats.CountStatus(StatusPaused))
}

func TestRecognized(t *testing.T) {
	assert.True(t, Recognized(ProgressEvent{ID: "a"}))
	assert.True(t, Recognized(SnapshotEvent{}))
	assert.False(t, Recognized(UnknownEvent{Reason: "bad"}))
	assert.False(t, Recognized(nil))
}
