package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/dotcommander/confab/internal/present"
)

const maxStdinBytes = 4 * 1024 * 1024

func drainStdin() {
	if present.IsInputTTY() {
		return
	}
	_, _ = io.Copy(io.Discard, os.Stdin)
}

// readStdin returns piped input, or an empty string when stdin is a terminal.
func readStdin() (string, error) {
	if present.IsInputTTY() {
		return "", nil
	}
	bts, err := io.ReadAll(io.LimitReader(os.Stdin, maxStdinBytes+1))
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	if len(bts) > maxStdinBytes {
		return "", fmt.Errorf("read stdin: input too large (>%d bytes)", maxStdinBytes)
	}
	return string(bts), nil
}
