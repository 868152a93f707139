package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/user/secmon/pkg/analysis"
	"github.com/user/secmon/pkg/finding"
)

// Analyzer produces an analysis for a single finding.
type Analyzer interface {
	Analyze(ctx context.Context, f finding.Finding) analysis.Result
}

// Simulator runs a sample finding straight through the analyzer, skipping
// triage, and saves whatever comes back.
type Simulator struct {
	analyzer Analyzer
	dir      string
	logger   *slog.Logger
	now      func() time.Time
}

func New(a Analyzer, dir string, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{analyzer: a, dir: dir, logger: logger, now: time.Now}
}

// Run analyses the named sample and writes the result to
// <dir>/<type>_analysis_<YYYYMMDD_HHMMSS>.json. Both success and error
// results are written; the returned error covers unknown types and I/O.
func (s *Simulator) Run(ctx context.Context, findingType string) (string, analysis.Result, error) {
	f, ok := Lookup(findingType)
	if !ok {
		s.logger.ErrorContext(ctx, "unknown finding type", "type", findingType)
		return "", analysis.Result{}, fmt.Errorf("unknown finding type: %s (available: %s)",
			findingType, strings.Join(Types(), ", "))
	}

	s.logger.InfoContext(ctx, "simulating processing of finding", "type", findingType)
	s.logger.InfoContext(ctx, "finding details", "description", f.Description, "severity", string(f.Severity))
	s.logger.InfoContext(ctx, "sending to gemini for analysis")

	res := s.analyzer.Analyze(ctx, f)
	if res.OK() {
		s.logger.InfoContext(ctx, "analysis completed successfully", "type", findingType)
	} else {
		s.logger.ErrorContext(ctx, "error in analysis", "type", findingType, "error", res.Error)
	}

	path, err := s.save(findingType, res)
	if err != nil {
		return "", res, err
	}
	s.logger.InfoContext(ctx, "analysis saved", "path", path)
	return path, res, nil
}

func (s *Simulator) save(findingType string, res analysis.Result) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s_analysis_%s.json", findingType, s.now().Format("20060102_150405"))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
