package report

import "math"

// Interpretation helpers translate measurements into the short verdict
// strings shown in the summary table and the analysis log.

// interpretIntegrated describes an integrated loudness measurement
// against common delivery targets.
func interpretIntegrated(lufs float64) string {
	switch {
	case math.IsInf(lufs, -1):
		return "digital silence"
	case lufs < -35:
		return "very quiet, near the noise floor"
	case lufs < -24:
		return "quiet, below delivery targets"
	case lufs <= -14:
		return "within common delivery targets"
	case lufs <= -9:
		return "loud, limited headroom"
	default:
		return "very loud, risk of clipping"
	}
}

// interpretSilence describes the silent share of the input relative to
// the configured verdict limit.
func interpretSilence(percent, limit float64) string {
	switch {
	case percent >= limit:
		return "excessive silence"
	case limit > 0 && percent >= limit*0.75:
		return "close to the silence limit"
	case percent >= 25:
		return "long pauses, review if unexpected"
	case percent > 0:
		return "normal pauses"
	default:
		return "no silence detected"
	}
}

// interpretUnderruns describes dropout counts.
func interpretUnderruns(count int) string {
	switch {
	case count == 0:
		return "no dropouts"
	case count <= 2:
		return "isolated dropouts, check the capture chain"
	case count <= 10:
		return "repeated dropouts, capture unreliable"
	default:
		return "severe dropout activity"
	}
}

// interpretHum describes a hum-to-signal power ratio in dB.
func interpretHum(db float64) string {
	switch {
	case math.IsInf(db, -1) || db < -60:
		return "no measurable hum"
	case db < -40:
		return "faint hum, below audibility"
	case db < -20:
		return "audible hum likely"
	default:
		return "strong mains hum"
	}
}
