package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lijiannan828-oss/yvideo-factory/internal/artifact"
	"github.com/lijiannan828-oss/yvideo-factory/internal/client"
	"github.com/lijiannan828-oss/yvideo-factory/internal/config"
	"github.com/lijiannan828-oss/yvideo-factory/internal/shots"
)

// Stage generation defaults, matching the service's own request defaults.
const (
	defaultMinShots       = 12
	defaultMaxShots       = 500
	round1MaxOutputTokens = 50000
	round1Temperature     = 0.5
	round2MaxOutputTokens = 30000
	round2Temperature     = 0.4

	round1ArtifactPattern = "*_round1_pictures.json"
	round1CaptureFile     = "round1_response.json"
	round2CaptureFile     = "round2_response.json"
	fullCaptureFile       = "full_response.json"
)

type stageConfig struct {
	MaxOutputTokens int     `json:"max_output_tokens"`
	Temperature     float64 `json:"temperature"`
}

type round1Request struct {
	Story    string      `json:"story"`
	MinShots int         `json:"min_shots"`
	MaxShots int         `json:"max_shots"`
	Config   stageConfig `json:"config"`
}

type round2Request struct {
	Pictures   []shots.Record `json:"pictures"`
	Characters string         `json:"characters"`
	Scenes     string         `json:"scenes"`
	Config     stageConfig    `json:"config"`
}

type fullRequest struct {
	Story      string      `json:"story"`
	Characters string      `json:"characters"`
	Scenes     string      `json:"scenes"`
	Config     stageConfig `json:"config"`
}

// Result summarizes a completed run.
type Result struct {
	RunID     string
	States    []State
	Elapsed   map[string]time.Duration
	Shots     int
	OutputDir string
}

// Driver sequences the three-stage smoke test: preflight, round1, artifact
// location, normalization, round2 and the full end-to-end call.
type Driver struct {
	cfg     *config.Config
	client  *client.Client
	locator *artifact.Locator
	logger  *zap.Logger
	out     io.Writer
	now     func() time.Time
}

// Option adjusts driver construction; used by tests.
type Option func(*Driver)

// WithOutput redirects the stage transcripts and summary.
func WithOutput(w io.Writer) Option {
	return func(d *Driver) { d.out = w }
}

// WithClock overrides the clock used for the conventional output location.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// New assembles a driver over an already-validated configuration.
func New(cfg *config.Config, cl *client.Client, loc *artifact.Locator, logger *zap.Logger, opts ...Option) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Driver{
		cfg:     cfg,
		client:  cl,
		locator: loc,
		logger:  logger.Named("PipelineDriver"),
		out:     os.Stdout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes the whole pipeline once. Any stage failure terminates the run;
// there is no partial success and no resumption.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	m := newMachine()
	result := &Result{
		RunID:   uuid.NewString(),
		Elapsed: make(map[string]time.Duration),
	}
	log := d.logger.With(zap.String("run_id", result.RunID))

	fail := func(at State, err error) (*Result, error) {
		if terr := m.advance(StateFailed); terr != nil {
			log.Error("State machine corrupted during failure handling", zap.Error(terr))
		}
		result.States = m.visited
		log.Error("Pipeline failed", zap.String("state", string(at)), zap.Error(err))
		return result, err
	}

	docs, err := d.cfg.LoadDocuments()
	if err != nil {
		return fail(StateIdle, err)
	}

	// Preflight: any failure is fatal and prints nothing but the diagnostic.
	if err := m.advance(StatePreflight); err != nil {
		return fail(m.current, err)
	}
	health, err := d.client.Health(ctx)
	if err != nil {
		return fail(StatePreflight, err)
	}
	result.Elapsed["preflight"] = health.Elapsed
	log.Info("Preflight OK", zap.Duration("elapsed", health.Elapsed))

	// Stage 1: initial shot breakdown.
	if err := m.advance(StateStage1); err != nil {
		return fail(m.current, err)
	}
	r1, err := d.client.RunStage(ctx, "round1", "/storyboardn/round1", round1Request{
		Story:    docs.Story,
		MinShots: defaultMinShots,
		MaxShots: defaultMaxShots,
		Config:   stageConfig{MaxOutputTokens: round1MaxOutputTokens, Temperature: round1Temperature},
	}, false)
	if err != nil {
		return fail(StateStage1, err)
	}
	result.Elapsed["round1"] = r1.Elapsed
	d.capture(round1CaptureFile, r1.Body)
	d.transcript("round1", r1)

	// Locate the full per-shot artifact referenced by (or inlined in) the
	// stage-1 response. The temp copy of a fetched artifact is released on
	// every exit path.
	if err := m.advance(StateLocate); err != nil {
		return fail(m.current, err)
	}
	art, err := d.locator.Locate(ctx, r1.Body, round1ArtifactPattern)
	if err != nil {
		return fail(StateLocate, err)
	}
	defer art.Cleanup()

	if err := m.advance(StateNormalize); err != nil {
		return fail(m.current, err)
	}
	records, err := shots.Normalize(art.Data)
	if err != nil {
		return fail(StateNormalize, err)
	}
	result.Shots = len(records)
	log.Info("Shots normalized", zap.Int("count", len(records)), zap.String("source", art.Source))

	// Stage 2: enrich the normalized shots with the aux documents.
	if err := m.advance(StateStage2); err != nil {
		return fail(m.current, err)
	}
	r2, err := d.client.RunStage(ctx, "round2", "/storyboardn/round2/batched", round2Request{
		Pictures:   records,
		Characters: docs.Characters,
		Scenes:     docs.Scenes,
		Config:     stageConfig{MaxOutputTokens: round2MaxOutputTokens, Temperature: round2Temperature},
	}, false)
	if err != nil {
		return fail(StateStage2, err)
	}
	result.Elapsed["round2"] = r2.Elapsed
	d.capture(round2CaptureFile, r2.Body)
	d.transcript("round2", r2)

	// Stage 3: single-call end-to-end generation from the raw documents.
	if err := m.advance(StateStage3); err != nil {
		return fail(m.current, err)
	}
	full, err := d.client.RunStage(ctx, "full", "/storyboardn/full", fullRequest{
		Story:      docs.Story,
		Characters: docs.Characters,
		Scenes:     docs.Scenes,
		Config:     stageConfig{MaxOutputTokens: round1MaxOutputTokens, Temperature: round1Temperature},
	}, false)
	if err != nil {
		return fail(StateStage3, err)
	}
	result.Elapsed["full"] = full.Elapsed
	d.capture(fullCaptureFile, full.Body)
	d.transcript("full", full)

	if err := m.advance(StateDone); err != nil {
		return fail(m.current, err)
	}
	result.States = m.visited
	result.OutputDir = filepath.Join(d.cfg.DataDir, d.now().Format("20060102"))
	d.summary(result)
	return result, nil
}

// capture persists a stage's raw body for operator inspection. Failure to
// capture is logged but never fails the run.
func (d *Driver) capture(name string, body []byte) {
	path := filepath.Join(d.cfg.CaptureDir, name)
	if err := os.WriteFile(path, body, 0644); err != nil {
		d.logger.Warn("Failed to capture stage response", zap.String("path", path), zap.Error(err))
	}
}

// transcript prints a stage's raw body and elapsed time regardless of HTTP
// status: the operator sees what came back, then the run decides.
func (d *Driver) transcript(name string, resp *client.StageResponse) {
	fmt.Fprintf(d.out, "--- %s (status %d, %.2fs) ---\n%s\n", name, resp.Status, resp.Elapsed.Seconds(), resp.Body)
}

func (d *Driver) summary(result *Result) {
	fmt.Fprintf(d.out, "\n=== storyboard smoke test passed ===\n")
	fmt.Fprintf(d.out, "run: %s, shots: %d\n", result.RunID, result.Shots)
	for _, name := range []string{"preflight", "round1", "round2", "full"} {
		if elapsed, ok := result.Elapsed[name]; ok {
			fmt.Fprintf(d.out, "  %-10s %.2fs\n", name, elapsed.Seconds())
		}
	}
	fmt.Fprintf(d.out, "artifacts: %s\n", result.OutputDir)
}
