package factories

import (
	"context"
	"time"

	"voicekit/core"
	transporthandler "voicekit/handlers/transport"
)

// PipelineConfig configures a Pipeline's lifecycle behaviour.
type PipelineConfig struct {
	Timeout time.Duration
}

// HandlerBuilder creates the ordered handler slice for a single session.
type HandlerBuilder func(svc transporthandler.TransportService, ctx context.Context) ([]core.IHandler, error)

// Pipeline builds and runs handler chains for incoming transport sessions.
type Pipeline struct {
	config  PipelineConfig
	builder HandlerBuilder
	logger  *core.Logger
}

func NewPipeline(builder HandlerBuilder, config PipelineConfig, logger *core.Logger) *Pipeline {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Pipeline{
		builder: builder,
		config:  config,
		logger:  logger,
	}
}

// Run builds a handler pipeline for one session and blocks until it ends.
func (p *Pipeline) Run(svc transporthandler.TransportService, ctx context.Context) error {
	logger := p.logger.With(map[string]any{"component": "pipeline"})

	select {
	case <-ctx.Done():
		logger.Info("context already cancelled, skipping session")
		return nil
	default:
	}

	handlers, err := p.builder(svc, ctx)
	if err != nil {
		logger.With(map[string]any{"error": err}).Error("failed to build handlers")
		return err
	}

	runner := core.NewRunner(handlers, p.logger)
	if err := runner.Start(); err != nil {
		logger.With(map[string]any{"error": err}).Error("runner failed to start")
		runner.Stop()
		return err
	}

	logger.Info("runner started, waiting for completion")

	var timerC <-chan time.Time
	if p.config.Timeout > 0 {
		timer := time.NewTimer(p.config.Timeout)
		defer timer.Stop()
		timerC = timer.C
	}

	var result error
	select {
	case <-ctx.Done():
		logger.Info("context cancelled, stopping runner")

	case <-timerC:
		logger.Warn("session timeout reached, stopping runner")
		result = context.DeadlineExceeded

	case <-runner.Finished:
		logger.Info("runner finished")
	}

	if err := runner.Stop(); err != nil {
		logger.With(map[string]any{"error": err}).Warn("runner cleanup reported errors")
	}
	return result
}
