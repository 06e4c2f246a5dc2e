// Package fpsmeter measures frame-rate stability from frame arrival times.
// The capture probe uses it to verify a session delivers at its negotiated
// rate before trusting the stream.
package fpsmeter

import (
	"math"
	"time"
)

const (
	// fpsStabilityThreshold is the maximum allowed FPS standard deviation as
	// a fraction of mean FPS. Example: 30 FPS mean is stable while the
	// stddev stays under 4.5 FPS.
	fpsStabilityThreshold = 0.15

	// jitterStabilityThreshold is the maximum allowed mean jitter as a
	// fraction of the expected inter-frame interval. Example: 30 FPS (33ms
	// interval) is stable while mean jitter stays under 6.6ms.
	jitterStabilityThreshold = 0.20
)

// Stats describes the measured frame-rate behavior of a capture window.
type Stats struct {
	FramesReceived int           // Number of frames observed
	Duration       time.Duration // Measurement window length
	FPSMean        float64       // Mean FPS across the window
	FPSStdDev      float64       // Standard deviation of instantaneous FPS
	FPSMin         float64       // Minimum instantaneous FPS
	FPSMax         float64       // Maximum instantaneous FPS
	IsStable       bool          // True when FPS stddev and jitter are under thresholds
	JitterMean     float64       // Mean inter-frame interval deviation (seconds)
	JitterStdDev   float64       // Standard deviation of jitter (seconds)
	JitterMax      float64       // Maximum jitter observed (seconds)
}

// Measure computes frame-rate statistics from frame arrival times.
//
// It derives the mean FPS over the whole window, the instantaneous FPS of
// each frame interval with min/max/stddev, and the jitter of each interval
// against the expected one. The window is stable when the FPS stddev is
// under 15% of the mean AND the mean jitter is under 20% of the expected
// interval.
func Measure(frameTimes []time.Time, totalDuration time.Duration) *Stats {
	n := len(frameTimes)
	if n == 0 {
		return &Stats{Duration: totalDuration}
	}

	fpsMean := float64(n) / totalDuration.Seconds()

	instantaneous := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		interval := frameTimes[i].Sub(frameTimes[i-1]).Seconds()
		if interval > 0 {
			instantaneous = append(instantaneous, 1.0/interval)
		}
	}

	if len(instantaneous) == 0 {
		return &Stats{
			FramesReceived: n,
			Duration:       totalDuration,
			FPSMean:        fpsMean,
		}
	}

	fpsMin := instantaneous[0]
	fpsMax := instantaneous[0]
	for _, fps := range instantaneous {
		if fps < fpsMin {
			fpsMin = fps
		}
		if fps > fpsMax {
			fpsMax = fps
		}
	}

	var sumSquares float64
	for _, fps := range instantaneous {
		diff := fps - fpsMean
		sumSquares += diff * diff
	}
	fpsStdDev := math.Sqrt(sumSquares / float64(len(instantaneous)))

	// Jitter = deviation of each interval from the expected one
	expectedInterval := 1.0 / fpsMean

	jitters := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		actualInterval := frameTimes[i].Sub(frameTimes[i-1]).Seconds()
		jitters = append(jitters, math.Abs(actualInterval-expectedInterval))
	}

	var jitterSum, jitterMax float64
	for _, j := range jitters {
		jitterSum += j
		if j > jitterMax {
			jitterMax = j
		}
	}
	jitterMean := jitterSum / float64(len(jitters))

	var jitterSumSquares float64
	for _, j := range jitters {
		diff := j - jitterMean
		jitterSumSquares += diff * diff
	}
	jitterStdDev := math.Sqrt(jitterSumSquares / float64(len(jitters)))

	fpsStable := fpsStdDev < (fpsMean * fpsStabilityThreshold)
	jitterStable := jitterMean < (expectedInterval * jitterStabilityThreshold)

	return &Stats{
		FramesReceived: n,
		Duration:       totalDuration,
		FPSMean:        fpsMean,
		FPSStdDev:      fpsStdDev,
		FPSMin:         fpsMin,
		FPSMax:         fpsMax,
		IsStable:       fpsStable && jitterStable,
		JitterMean:     jitterMean,
		JitterStdDev:   jitterStdDev,
		JitterMax:      jitterMax,
	}
}

// SteadyRate caps a requested downstream processing rate at what the
// measured stream actually sustains.
//
//   - Measured FPS >= maxRate: return maxRate
//   - Measured FPS < maxRate: return 90% of the measured FPS as a safety
//     margin, so the consumer never starves waiting for frames
func SteadyRate(stats *Stats, maxRate float64) float64 {
	if stats == nil {
		return maxRate
	}
	if stats.FPSMean < maxRate {
		return stats.FPSMean * 0.9
	}
	return maxRate
}
