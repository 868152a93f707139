package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/user/secmon/pkg/analysis"
	"github.com/user/secmon/pkg/finding"
)

// Sink persists successful analyses.
type Sink interface {
	WriteResult(ctx context.Context, f finding.Finding, r analysis.Result) error
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileSink writes each result as indented JSON into Dir. The file is named
// after the finding's last path segment and the time it was written, so a
// redelivered finding produces a second file rather than overwriting.
type FileSink struct {
	Dir string
	Now func() time.Time
}

func (s *FileSink) WriteResult(ctx context.Context, f finding.Finding, r analysis.Result) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}

	name := fmt.Sprintf("%s_%s.json", fileStem(f), now().UTC().Format("20060102T150405.000000000"))
	path := filepath.Join(s.Dir, name)
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func fileStem(f finding.Finding) string {
	stem := filepath.Base(f.Name)
	if f.Name == "" || stem == "." || stem == "/" {
		stem = "finding"
	}
	return unsafeChars.ReplaceAllString(stem, "_")
}
