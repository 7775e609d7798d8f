package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
)

// DevNotifier implements Notifier for local development. Instead of talking
// to a delivery service it writes each message as a JSON file to a
// directory, so verification codes can be inspected during manual testing.
type DevNotifier struct {
	dir   string
	clock Clock
}

// NewDevNotifier creates a development notifier that saves messages to
// disk. The directory is created on first send.
func NewDevNotifier(dir string) *DevNotifier {
	return &DevNotifier{dir: dir, clock: time.Now}
}

type devMessage struct {
	Timestamp   string `json:"timestamp"`
	Destination string `json:"destination"`
	Subject     string `json:"subject"`
	Body        string `json:"body,omitempty"`
	Code        int    `json:"code,omitempty"`
}

func (d *DevNotifier) Send(ctx context.Context, destination string, message Message) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to create notifier directory")
	}

	now := d.clock()
	payload := devMessage{
		Timestamp:   now.Format(time.RFC3339),
		Destination: destination,
		Subject:     message.Subject,
		Body:        message.Body,
		Code:        message.Code,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to marshal notification")
	}

	name := fmt.Sprintf("%s_%s.json", now.Format("2006_01_02_150405"), sanitizeFilename(destination))
	if err := os.WriteFile(filepath.Join(d.dir, name), data, 0o644); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to write notification")
	}

	return nil
}

func sanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
