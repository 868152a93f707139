package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/user/secmon/pkg/analysis"
	"github.com/user/secmon/pkg/finding"
)

// ErrAnalysisFailed is returned when the model call faulted. Transports
// treat it as a delivery failure so the event is redelivered.
var ErrAnalysisFailed = errors.New("analysis failed")

// Analyzer produces an analysis for a single finding.
type Analyzer interface {
	Analyze(ctx context.Context, f finding.Finding) analysis.Result
}

// Processor is the event entry point: it decodes a finding notification,
// applies the severity triage and hands surviving findings to the
// analyzer. It keeps no state between events and may be called
// concurrently.
type Processor struct {
	analyzer Analyzer
	sink     Sink
	logger   *slog.Logger
	timeout  time.Duration
	newID    func() string
}

type Option func(*Processor)

// WithSink stores every successful result.
func WithSink(s Sink) Option {
	return func(p *Processor) { p.sink = s }
}

// WithTimeout bounds each analysis. Zero leaves the context untouched.
func WithTimeout(d time.Duration) Option {
	return func(p *Processor) { p.timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

func New(a Analyzer, opts ...Option) *Processor {
	p := &Processor{
		analyzer: a,
		logger:   slog.Default(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HandleEnvelope processes a Pub/Sub push request body.
func (p *Processor) HandleEnvelope(ctx context.Context, body []byte) error {
	env, err := finding.DecodeEnvelope(body)
	if err != nil {
		p.logger.ErrorContext(ctx, "error processing finding", "error", err)
		return err
	}
	return p.HandleMessageData(ctx, env.Message.Data)
}

// HandleMessageData processes the base64 data field of a Pub/Sub message.
func (p *Processor) HandleMessageData(ctx context.Context, data string) error {
	payload, err := finding.DecodeData(data)
	if err != nil {
		p.logger.ErrorContext(ctx, "error processing finding", "error", err)
		return err
	}
	return p.HandleNotification(ctx, payload)
}

// HandleNotification processes raw notification JSON. A nil return means
// the event is done with: analysed, stored, dropped by triage or answered
// with an empty response. Only malformed input and model faults are
// returned as errors.
func (p *Processor) HandleNotification(ctx context.Context, payload []byte) error {
	log := p.logger.With("invocation_id", p.newID())

	n, err := finding.DecodeNotification(payload)
	if err != nil {
		log.ErrorContext(ctx, "error processing finding", "error", err)
		return err
	}
	f := n.Finding
	name := f.DisplayName()

	log.InfoContext(ctx, "received security finding", "finding", name)

	if !finding.ShouldAnalyze(f) {
		log.InfoContext(ctx, "skipping finding", "severity", strings.ToLower(string(f.Severity)), "finding", name)
		return nil
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	res := p.analyzer.Analyze(ctx, f)

	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode result for %s: %w", name, err)
	}

	if !res.OK() {
		log.ErrorContext(ctx, "analysis failed", "finding", name, "outcome", res.Outcome.String(), "result", string(raw))
		if res.Outcome == analysis.OutcomeCallFault {
			return fmt.Errorf("%w for %s: %w", ErrAnalysisFailed, name, res.Err)
		}
		return nil
	}

	log.InfoContext(ctx, "analysis complete", "finding", name, "result", string(raw))

	if p.sink != nil {
		if err := p.sink.WriteResult(ctx, f, res); err != nil {
			log.ErrorContext(ctx, "failed to store analysis", "finding", name, "error", err)
			return err
		}
	}
	return nil
}
