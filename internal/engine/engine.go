// Package engine adapts the external audio toolchain (ffmpeg for decoding,
// aubio for beat tracking) behind the narrow capability the analyzer needs:
// load a mono sample buffer, run one multi-feature rhythm extraction over it.
// Loader and extractor handles are constructed fresh per invocation and are
// not safe to share across concurrent calls.
package engine

import "context"

// Rhythm is the raw output of one rhythm extraction pass.
type Rhythm struct {
	BPM        float64
	Beats      []float64 // beat timestamps, seconds from stream start
	Confidence float64
	Intervals  []float64 // gaps between consecutive beats, len(Beats)-1
}

// MonoLoader decodes an audio file into a mono sample buffer.
type MonoLoader interface {
	// Load returns the samples and their sample rate.
	Load(ctx context.Context) ([]float64, int, error)
}

// RhythmExtractor runs tempo and beat extraction over a sample buffer.
type RhythmExtractor interface {
	Extract(ctx context.Context, samples []float64, sampleRate int) (Rhythm, error)
}

// Provider constructs engine handles and reports whether the engine is
// usable in the current environment. Probe must be cheap, side-effect free
// and recomputed on every call, never cached.
type Provider interface {
	Probe(ctx context.Context) error
	NewMonoLoader(path string) MonoLoader
	NewRhythmExtractor() RhythmExtractor
}
