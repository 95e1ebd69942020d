package bridge

import (
	"fmt"
	"strings"

	"github.com/pkg/browser"

	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/logging"
)

// Opener hands URLs to the user's default browser.
type Opener struct {
	logger *logging.Logger
	open   func(url string) error
}

// NewOpener creates an opener backed by the platform browser launcher.
func NewOpener(logger *logging.Logger) *Opener {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Opener{logger: logger, open: browser.OpenURL}
}

// Open launches url externally. Only web URLs are allowed; anything else
// (file:, javascript:, custom schemes) is rejected before it reaches the OS.
func (o *Opener) Open(url string) error {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("refusing to open non-web URL")
	}
	if err := o.open(url); err != nil {
		return fmt.Errorf("failed to open URL: %w", err)
	}
	return nil
}
