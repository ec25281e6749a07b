// Package format contains stateless presentation helpers for download
// progress display.
package format

import "fmt"

var units = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// Bytes renders a byte count using the largest unit whose scaled value is
// below 1024, with two decimal places, e.g. "12.34 MB". Zero renders as
// "0 B".
func Bytes(n int64) string {
	if n == 0 {
		return "0 B"
	}

	value := float64(n)
	unit := 0
	for value >= 1024 && unit < len(units)-1 {
		value /= 1024
		unit++
	}

	return fmt.Sprintf("%.2f %s", value, units[unit])
}
