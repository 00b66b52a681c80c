package util

import "fmt"

// FormatBytes formats a byte count into a human-readable string.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// TruncatePath shortens path to at most maxLen bytes by cutting from the
// left, so the file name stays visible. Below four bytes there is no room
// for the "..." marker and only the tail is kept.
func TruncatePath(path string, maxLen int) string {
	switch {
	case len(path) <= maxLen:
		return path
	case maxLen <= 0:
		return ""
	case maxLen < 4:
		return path[len(path)-maxLen:]
	}
	return "..." + path[len(path)-maxLen+3:]
}
