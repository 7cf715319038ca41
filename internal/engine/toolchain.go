package engine

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const toolchainSampleRate = 44100

// Toolchain implements Provider over the ffmpeg + aubio command line tools.
type Toolchain struct {
	FFmpegBin string
	AubioBin  string
}

func NewToolchain(ffmpegBin, aubioBin string) *Toolchain {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	if aubioBin == "" {
		aubioBin = "aubio"
	}
	return &Toolchain{FFmpegBin: ffmpegBin, AubioBin: aubioBin}
}

// Probe constructs a loader and an extractor without running them and
// verifies both tool binaries resolve on PATH.
func (t *Toolchain) Probe(ctx context.Context) error {
	_ = t.NewMonoLoader("")
	_ = t.NewRhythmExtractor()
	if _, err := exec.LookPath(t.FFmpegBin); err != nil {
		return fmt.Errorf("%s not found: %w", t.FFmpegBin, err)
	}
	if _, err := exec.LookPath(t.AubioBin); err != nil {
		return fmt.Errorf("%s not found: %w", t.AubioBin, err)
	}
	return nil
}

func (t *Toolchain) NewMonoLoader(path string) MonoLoader {
	return &monoLoader{bin: t.FFmpegBin, path: path}
}

func (t *Toolchain) NewRhythmExtractor() RhythmExtractor {
	return &rhythmExtractor{bin: t.AubioBin}
}

// monoLoader decodes one file to 32-bit float mono PCM at 44100 Hz.
type monoLoader struct {
	bin  string
	path string
}

func (l *monoLoader) Load(ctx context.Context) ([]float64, int, error) {
	args := []string{
		"-hide_banner", "-nostats", "-v", "error",
		"-i", l.path,
		"-f", "f32le", "-ac", "1", "-ar", strconv.Itoa(toolchainSampleRate),
		"-",
	}
	cmd := exec.CommandContext(ctx, l.bin, args...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	raw, err := cmd.Output()
	if err != nil && len(raw) == 0 {
		return nil, 0, fmt.Errorf("ffmpeg decode failed: %w", err)
	}

	samples := make([]float64, 0, len(raw)/4)
	for i := 0; i+4 <= len(raw); i += 4 {
		bits := binary.LittleEndian.Uint32(raw[i : i+4])
		samples = append(samples, float64(math.Float32frombits(bits)))
	}
	return samples, toolchainSampleRate, nil
}

// rhythmExtractor runs aubio over the sample buffer. aubio only reads
// files, so the buffer is written to a temporary 16-bit WAV first.
type rhythmExtractor struct {
	bin string
}

func (e *rhythmExtractor) Extract(ctx context.Context, samples []float64, sampleRate int) (Rhythm, error) {
	wavPath, err := writeTempWAV(samples, sampleRate)
	if err != nil {
		return Rhythm{}, err
	}
	defer os.Remove(wavPath)

	beatOut, err := e.run(ctx, "beat", wavPath)
	if err != nil && beatOut == "" {
		return Rhythm{}, fmt.Errorf("aubio beat failed: %w", err)
	}
	tempoOut, err := e.run(ctx, "tempo", wavPath)
	if err != nil && tempoOut == "" {
		return Rhythm{}, fmt.Errorf("aubio tempo failed: %w", err)
	}

	series := parseBPMSeries(tempoOut)
	if len(series) == 0 {
		return Rhythm{}, fmt.Errorf("no bpm series")
	}
	beats := parseBeatTimes(beatOut)

	return Rhythm{
		BPM:        medianOf(series),
		Beats:      beats,
		Confidence: parseConfidence(beatOut + "\n" + tempoOut),
		Intervals:  beatIntervals(beats),
	}, nil
}

func (e *rhythmExtractor) run(ctx context.Context, sub, in string) (string, error) {
	cmd := exec.CommandContext(ctx, e.bin, sub, "-i", in)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func writeTempWAV(samples []float64, sampleRate int) (string, error) {
	f, err := os.CreateTemp("", "rhythm-*.wav")
	if err != nil {
		return "", err
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		buf.Data[i] = int(s * 32767)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

var (
	bpmRe        = regexp.MustCompile(`([0-9]+(\.[0-9]+)?)\s*bpm`)
	confidenceRe = regexp.MustCompile(`confidence\s*([0-9]+(\.[0-9]+)?)`)
)

// parseBeatTimes reads one beat timestamp per line, skipping anything that
// does not start with a number.
func parseBeatTimes(out string) []float64 {
	var beats []float64
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.Fields(line)[0], 64)
		if err != nil || v < 0 {
			continue
		}
		beats = append(beats, v)
	}
	return beats
}

func parseBPMSeries(out string) []float64 {
	var vals []float64
	sc := bufio.NewScanner(strings.NewReader(strings.ToLower(out)))
	for sc.Scan() {
		if m := bpmRe.FindStringSubmatch(sc.Text()); len(m) >= 2 {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				vals = append(vals, v)
			}
		}
	}
	return vals
}

// parseConfidence picks up the confidence token some aubio builds emit.
// Absent token reports 0.
func parseConfidence(out string) float64 {
	if m := confidenceRe.FindStringSubmatch(strings.ToLower(out)); len(m) >= 2 {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v
		}
	}
	return 0
}

func beatIntervals(beats []float64) []float64 {
	if len(beats) < 2 {
		return nil
	}
	intervals := make([]float64, 0, len(beats)-1)
	for i := 1; i < len(beats); i++ {
		intervals = append(intervals, beats[i]-beats[i-1])
	}
	return intervals
}

func medianOf(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}
