package analyzer

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	apperrors "go-rhythm-inspector/internal/errors"
	"go-rhythm-inspector/internal/engine"
)

type fakeLoader struct {
	samples []float64
	err     error
}

func (f fakeLoader) Load(ctx context.Context) ([]float64, int, error) {
	return f.samples, 44100, f.err
}

type fakeExtractor struct {
	rhythm   engine.Rhythm
	err      error
	panicMsg string
}

func (f fakeExtractor) Extract(ctx context.Context, samples []float64, sampleRate int) (engine.Rhythm, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.rhythm, f.err
}

type fakeProvider struct {
	probeErr  error
	loader    fakeLoader
	extractor fakeExtractor
}

func (f fakeProvider) Probe(ctx context.Context) error             { return f.probeErr }
func (f fakeProvider) NewMonoLoader(path string) engine.MonoLoader { return f.loader }
func (f fakeProvider) NewRhythmExtractor() engine.RhythmExtractor  { return f.extractor }

// writeTestAudio creates a placeholder file so the existence check passes.
func writeTestAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "track.wav")
	if err := os.WriteFile(path, []byte("RIFF....WAVE"), 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func steadyProvider() fakeProvider {
	return fakeProvider{
		loader: fakeLoader{samples: []float64{0.1, 0.2, 0.3}},
		extractor: fakeExtractor{rhythm: engine.Rhythm{
			BPM:        120.0,
			Beats:      []float64{0.5, 1.0, 1.5, 2.0},
			Confidence: 3.2,
			Intervals:  []float64{0.5, 0.5, 0.5},
		}},
	}
}

func TestAnalyze_Success(t *testing.T) {
	a := NewAudioAnalyzer(steadyProvider(), 0)
	path := writeTestAudio(t)

	result, err := a.Analyze(context.Background(), path)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if result == nil {
		t.Fatal("Expected non-nil result")
	}
	if result.TempoBPM != 120.0 {
		t.Errorf("Expected tempo 120.0, got %f", result.TempoBPM)
	}
	if result.BeatsDetected != 4 {
		t.Errorf("Expected 4 beats detected, got %d", result.BeatsDetected)
	}
	if len(result.BeatTimestampsSec) != result.BeatsDetected {
		t.Errorf("beats_detected %d does not match timestamps length %d",
			result.BeatsDetected, len(result.BeatTimestampsSec))
	}
	if len(result.BPMIntervals) != result.BeatsDetected-1 {
		t.Errorf("Expected %d intervals, got %d", result.BeatsDetected-1, len(result.BPMIntervals))
	}
	// Perfectly even grid
	if result.RhythmRegularity != 1.0 {
		t.Errorf("Expected regularity 1.0 for even intervals, got %f", result.RhythmRegularity)
	}
	if result.Confidence != 3.2 {
		t.Errorf("Expected confidence passed through unclamped, got %f", result.Confidence)
	}
	if result.BeatTimestampsSec == nil || result.BPMIntervals == nil {
		t.Error("Expected non-nil slices in assembled result")
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	a := NewAudioAnalyzer(steadyProvider(), 0)
	path := writeTestAudio(t)

	first, err := a.Analyze(context.Background(), path)
	if err != nil {
		t.Fatalf("first Analyze returned error: %v", err)
	}
	second, err := a.Analyze(context.Background(), path)
	if err != nil {
		t.Fatalf("second Analyze returned error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical results for the same file, got %+v vs %+v", first, second)
	}
}

func TestAnalyze_FileNotFound(t *testing.T) {
	a := NewAudioAnalyzer(steadyProvider(), 0)
	missing := filepath.Join(t.TempDir(), "no-such-file.mp3")

	result, err := a.Analyze(context.Background(), missing)
	if result != nil {
		t.Fatal("Expected nil result for missing file")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Fatalf("Expected not_found error, got %v", err)
	}
	want := MsgFileNotFound + ": " + missing
	if got := apperrors.Message(err); got != want {
		t.Errorf("Expected message %q, got %q", want, got)
	}
}

func TestAnalyze_EngineUnavailable(t *testing.T) {
	p := steadyProvider()
	p.probeErr = errors.New("aubio not found")
	a := NewAudioAnalyzer(p, 0)

	result, err := a.Analyze(context.Background(), writeTestAudio(t))
	if result != nil {
		t.Fatal("Expected nil result when the engine is unavailable")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeEngineUnavailable) {
		t.Fatalf("Expected engine_unavailable error, got %v", err)
	}
	if got := apperrors.Message(err); got != MsgEngineMissing {
		t.Errorf("Expected message %q, got %q", MsgEngineMissing, got)
	}
}

func TestAnalyze_EmptyAudio(t *testing.T) {
	p := steadyProvider()
	p.loader = fakeLoader{samples: nil}
	a := NewAudioAnalyzer(p, 0)

	_, err := a.Analyze(context.Background(), writeTestAudio(t))
	if !apperrors.IsType(err, apperrors.ErrorTypeEmptyAudio) {
		t.Fatalf("Expected empty_audio error, got %v", err)
	}
	if got := apperrors.Message(err); got != MsgEmptyAudio {
		t.Errorf("Expected message %q, got %q", MsgEmptyAudio, got)
	}
}

func TestAnalyze_DecodeFault(t *testing.T) {
	p := steadyProvider()
	p.loader = fakeLoader{err: errors.New("ffmpeg decode failed")}
	a := NewAudioAnalyzer(p, 0)

	_, err := a.Analyze(context.Background(), writeTestAudio(t))
	if !apperrors.IsType(err, apperrors.ErrorTypeAnalysis) {
		t.Fatalf("Expected analysis error, got %v", err)
	}
	if got := apperrors.Message(err); !strings.HasPrefix(got, MsgAnalysisFailed) {
		t.Errorf("Expected message prefixed with %q, got %q", MsgAnalysisFailed, got)
	}
}

func TestAnalyze_ExtractorFault(t *testing.T) {
	p := steadyProvider()
	p.extractor = fakeExtractor{err: errors.New("no bpm series")}
	a := NewAudioAnalyzer(p, 0)

	_, err := a.Analyze(context.Background(), writeTestAudio(t))
	if !apperrors.IsType(err, apperrors.ErrorTypeAnalysis) {
		t.Fatalf("Expected analysis error, got %v", err)
	}
}

func TestAnalyze_PanicRecovered(t *testing.T) {
	p := steadyProvider()
	p.extractor = fakeExtractor{panicMsg: "engine blew up"}
	a := NewAudioAnalyzer(p, 0)

	result, err := a.Analyze(context.Background(), writeTestAudio(t))
	if result != nil {
		t.Fatal("Expected nil result after recovered panic")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeAnalysis) {
		t.Fatalf("Expected analysis error after recovered panic, got %v", err)
	}
	if got := apperrors.Message(err); !strings.Contains(got, "engine blew up") {
		t.Errorf("Expected panic detail in message, got %q", got)
	}
}

func TestAnalyze_ProbeEngine(t *testing.T) {
	a := NewAudioAnalyzer(steadyProvider(), 0)
	if err := a.ProbeEngine(context.Background()); err != nil {
		t.Errorf("Expected probe to succeed, got %v", err)
	}

	p := steadyProvider()
	p.probeErr = errors.New("ffmpeg not found")
	a = NewAudioAnalyzer(p, 0)
	err := a.ProbeEngine(context.Background())
	if !apperrors.IsType(err, apperrors.ErrorTypeEngineUnavailable) {
		t.Fatalf("Expected engine_unavailable from probe, got %v", err)
	}
	if got := apperrors.Message(err); !strings.HasPrefix(got, MsgEngineUnavailable) {
		t.Errorf("Expected message prefixed with %q, got %q", MsgEngineUnavailable, got)
	}
}

func TestRhythmRegularity(t *testing.T) {
	cases := []struct {
		name      string
		intervals []float64
		want      float64
		exact     bool
	}{
		{"empty", nil, 0.0, true},
		{"single interval", []float64{0.5}, 0.0, true},
		{"all equal", []float64{2.0, 2.0, 2.0}, 1.0, true},
		{"half regular", []float64{1.0, 3.0}, 0.5, true},
		{"all zero", []float64{0.0, 0.0}, 0.0, true},
		{"mildly uneven", []float64{0.5, 0.6, 0.4}, 0, false},
		{"wildly uneven", []float64{0.1, 10.0}, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := rhythmRegularity(tc.intervals)
			if got < 0.0 || got > 1.0 {
				t.Fatalf("regularity %f out of [0, 1] for %v", got, tc.intervals)
			}
			if math.IsNaN(got) {
				t.Fatalf("regularity is NaN for %v", tc.intervals)
			}
			if tc.exact && math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("Expected regularity %f for %v, got %f", tc.want, tc.intervals, got)
			}
		})
	}
}
