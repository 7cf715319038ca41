package analyzer

// AnalysisResult is the normalized outcome of one rhythm analysis. JSON keys
// follow the historical wire format of the service.
type AnalysisResult struct {
	TempoBPM          float64   `json:"tempo_bpm"`
	Confidence        float64   `json:"confidence"`
	BeatTimestampsSec []float64 `json:"beat_timestamps_sec"`
	BPMIntervals      []float64 `json:"bpm_intervals"`
	BeatsDetected     int       `json:"beats_detected"`
	RhythmRegularity  float64   `json:"rhythm_regularity"`
}

// AnalysisEnvelope is the success response shape shared by the CLI and the
// HTTP service.
type AnalysisEnvelope struct {
	AudioAnalysis *AnalysisResult `json:"audio_analysis"`
}

// ErrorEnvelope is the failure response shape. A response is always exactly
// one of AnalysisEnvelope or ErrorEnvelope.
type ErrorEnvelope struct {
	Error string `json:"error"`
}

// Health reports engine availability, computed on demand and never cached.
// The essentia_available key is kept for compatibility with existing callers.
type Health struct {
	Status            string `json:"status"`
	EssentiaAvailable bool   `json:"essentia_available"`
	Message           string `json:"message"`
}
