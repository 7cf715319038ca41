package analyzer

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	apperrors "go-rhythm-inspector/internal/errors"
	"go-rhythm-inspector/internal/engine"
	"go-rhythm-inspector/internal/logger"
)

// Client-visible messages. Kept verbatim from the original service so that
// existing callers matching on them keep working.
const (
	MsgEngineMissing     = "Essentia не установлена"
	MsgEngineUnavailable = "Essentia недоступна"
	MsgFileNotFound      = "Аудио файл не найден"
	MsgEmptyAudio        = "Аудио файл пуст или поврежден"
	MsgAnalysisFailed    = "Ошибка анализа аудио"
)

// AudioAnalyzer turns a file path into a normalized AnalysisResult or a
// typed *apperrors.AppError. No fault escapes either method.
type AudioAnalyzer interface {
	Analyze(ctx context.Context, path string) (*AnalysisResult, error)
	ProbeEngine(ctx context.Context) error
}

type rhythmAnalyzer struct {
	provider engine.Provider
	timeout  time.Duration
}

// NewAudioAnalyzer creates an analyzer over the given engine provider.
// timeout bounds each analysis call; zero disables the deadline.
func NewAudioAnalyzer(provider engine.Provider, timeout time.Duration) AudioAnalyzer {
	return &rhythmAnalyzer{provider: provider, timeout: timeout}
}

// Analyze validates the request, delegates decode and extraction to the
// engine, and assembles the normalized result. Engine handles are built
// fresh per call; nothing is shared between invocations.
func (a *rhythmAnalyzer) Analyze(ctx context.Context, path string) (result *AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(map[string]interface{}{"path": path, "panic": r}).Error("Recovered panic during analysis")
			result = nil
			err = apperrors.NewAnalysisError(fmt.Sprintf("%s: %v", MsgAnalysisFailed, r), nil)
		}
	}()

	if probeErr := a.provider.Probe(ctx); probeErr != nil {
		return nil, apperrors.NewEngineUnavailableError(MsgEngineMissing, probeErr)
	}

	if _, statErr := os.Stat(path); statErr != nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("%s: %s", MsgFileNotFound, path), statErr)
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	samples, sampleRate, loadErr := a.provider.NewMonoLoader(path).Load(ctx)
	if loadErr != nil {
		return nil, apperrors.NewAnalysisError(fmt.Sprintf("%s: %v", MsgAnalysisFailed, loadErr), loadErr)
	}
	if len(samples) == 0 {
		return nil, apperrors.NewEmptyAudioError(MsgEmptyAudio, nil)
	}

	rhythm, extractErr := a.provider.NewRhythmExtractor().Extract(ctx, samples, sampleRate)
	if extractErr != nil {
		return nil, apperrors.NewAnalysisError(fmt.Sprintf("%s: %v", MsgAnalysisFailed, extractErr), extractErr)
	}

	return assembleResult(rhythm), nil
}

// ProbeEngine constructs the engine's core objects without running them.
// Used by the CLI --test mode and the /health endpoint; the availability
// verdict is recomputed on every call.
func (a *rhythmAnalyzer) ProbeEngine(ctx context.Context) error {
	if err := a.provider.Probe(ctx); err != nil {
		return apperrors.NewEngineUnavailableError(fmt.Sprintf("%s: %v", MsgEngineUnavailable, err), err)
	}
	return nil
}

func assembleResult(rhythm engine.Rhythm) *AnalysisResult {
	beats := append(make([]float64, 0, len(rhythm.Beats)), rhythm.Beats...)
	intervals := append(make([]float64, 0, len(rhythm.Intervals)), rhythm.Intervals...)

	return &AnalysisResult{
		TempoBPM:          rhythm.BPM,
		Confidence:        rhythm.Confidence,
		BeatTimestampsSec: beats,
		BPMIntervals:      intervals,
		BeatsDetected:     len(beats),
		RhythmRegularity:  rhythmRegularity(intervals),
	}
}

// rhythmRegularity derives how even the beat grid is from the coefficient
// of variation of the intervals: 1 - popstddev/mean, clamped into [0, 1].
// Fewer than 2 intervals or a degenerate mean report 0.
func rhythmRegularity(intervals []float64) float64 {
	if len(intervals) < 2 {
		return 0.0
	}

	var sum float64
	for _, v := range intervals {
		sum += v
	}
	mean := sum / float64(len(intervals))

	var sq float64
	for _, v := range intervals {
		d := v - mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / float64(len(intervals)))

	r := 1.0 - stddev/mean
	if math.IsNaN(r) || r < 0 {
		return 0.0
	}
	if r > 1 {
		return 1.0
	}
	return r
}
