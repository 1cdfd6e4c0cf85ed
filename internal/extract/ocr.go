package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

// recognize runs tesseract over an image and returns the recognized text.
func (e *Extractor) recognize(ctx context.Context, path string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := commandContext(ctx, e.cfg.Tesseract, path, "stdout", "-l", e.cfg.Language) //nolint:gosec
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w: %s", e.cfg.Tesseract, err, msg)
		}
		return "", fmt.Errorf("%s: %w", e.cfg.Tesseract, err)
	}
	return stdout.String(), nil
}
