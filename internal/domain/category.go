package domain

import (
	"path"
	"strings"
)

// Category is a file-extension-derived grouping used for filtering
type Category string

const (
	CategoryVideo Category = "video"
	CategoryMusic Category = "music"
	CategoryZip   Category = "zip"
	CategoryExe   Category = "exe"
	CategoryDoc   Category = "doc"
)

// AllCategories lists every category in sidebar order
var AllCategories = []Category{CategoryDoc, CategoryVideo, CategoryMusic, CategoryZip, CategoryExe}

var categoryByExt = map[string]Category{
	".mp4":  CategoryVideo,
	".mkv":  CategoryVideo,
	".avi":  CategoryVideo,
	".mp3":  CategoryMusic,
	".wav":  CategoryMusic,
	".flac": CategoryMusic,
	".zip":  CategoryZip,
	".rar":  CategoryZip,
	".7z":   CategoryZip,
	".exe":  CategoryExe,
	".msi":  CategoryExe,
	".iso":  CategoryExe,
	".pdf":  CategoryDoc,
	".doc":  CategoryDoc,
	".txt":  CategoryDoc,
}

// CategoryOf returns the category for a file name, or "" when the extension is unmapped
func CategoryOf(fileName string) Category {
	ext := strings.ToLower(path.Ext(fileName))
	return categoryByExt[ext]
}

// ValidateCategory checks if a category is known
func ValidateCategory(c Category) bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}
