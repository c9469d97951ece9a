package render

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/browser"
)

// Opener shows a written image to the user.
type Opener func(ctx context.Context, path string) error

// openInViewer hands path to the desktop's default handler for the file
// type. The launcher's own output is discarded so it cannot interleave
// with the progress lines on stdout.
func openInViewer(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("render: open %s: %w", path, err)
	}
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	if err := browser.OpenFile(path); err != nil {
		return fmt.Errorf("render: open %s: %w", path, err)
	}
	return nil
}
