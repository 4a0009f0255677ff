package command

import (
	"fmt"
	"os"

	"github.com/rcarmo/go-uftp/internal/kftp"
)

// progressFunc returns a kftp.ProgressFunc that prints a carriage-returning
// percentage to stderr, matching the original kftp_send_file/kftp_recv_file
// behavior, or nil if enabled is false.
func progressFunc(enabled bool) kftp.ProgressFunc {
	if !enabled {
		return nil
	}

	return func(sent, total int64) {
		var pct int64
		if total > 0 {
			pct = sent * 100 / total
		}
		fmt.Fprintf(os.Stderr, "Progress: %d%%                         \r", pct)
	}
}
