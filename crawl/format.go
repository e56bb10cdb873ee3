package crawl

import (
	"fmt"
)

// progressURLWidth is the display width of URLs in progress lines.
const progressURLWidth = 60

// TruncateURL shortens a URL for display, keeping the end which carries
// the activity ID.
func TruncateURL(url string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if maxLen < 4 {
		return url[:min(len(url), maxLen)]
	}
	if len(url) <= maxLen {
		return url
	}
	return "..." + url[len(url)-maxLen+3:]
}

// FormatEvent renders a progress event as a single terminal line.
func FormatEvent(e ProgressEvent) string {
	switch e.Type {
	case ProgressPage:
		return fmt.Sprintf("page %d: %d listings", e.Page, e.Total)
	case ProgressRecord:
		return fmt.Sprintf("  ok   %s (%d records)", TruncateURL(e.URL, progressURLWidth), e.Records)
	case ProgressFailed:
		return fmt.Sprintf("  FAIL %s: %v", TruncateURL(e.URL, progressURLWidth), e.Error)
	case ProgressRestart:
		if e.Error != nil {
			return fmt.Sprintf("  restarting browser after failure: %v", e.Error)
		}
		return "  restarting browser"
	case ProgressFinished:
		if e.Error != nil {
			return fmt.Sprintf("stopped with %d records: %v", e.Records, e.Error)
		}
		return fmt.Sprintf("done: %d records", e.Records)
	default:
		return ""
	}
}
