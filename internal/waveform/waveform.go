// Package waveform renders a quick level-meter view of a decoded track,
// used by the CLI's inspect command to sanity-check an audio file before
// handing it to the Normalizer's analysis JSON.
package waveform

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Config controls the STFT framing. Grounded on the teacher's STFT helper,
// trimmed from three simultaneous window scales (used there for
// multi-resolution beat detection) to the one this package's single caller
// needs.
type Config struct {
	WindowSize int
	HopSize    int
}

// DefaultConfig returns a reasonable 1024/512 analysis window, about 23ms at
// 44.1kHz.
func DefaultConfig() Config {
	return Config{WindowSize: 1024, HopSize: 512}
}

// Frame is one level-meter sample: the peak spectral magnitude within a
// single analysis window.
type Frame struct {
	Time      float64
	Magnitude float64
}

// Compute slides a window across mono samples and returns one Frame per hop,
// each holding the peak FFT magnitude within that window.
func Compute(samples []float64, sampleRate int, cfg Config) []Frame {
	if cfg.WindowSize <= 0 || sampleRate <= 0 || len(samples) == 0 {
		return nil
	}
	fft := fourier.NewFFT(cfg.WindowSize)
	window := make([]float64, cfg.WindowSize)

	var frames []Frame
	for start := 0; start < len(samples); start += cfg.HopSize {
		n := copy(window, samples[start:min(start+cfg.WindowSize, len(samples))])
		for i := n; i < cfg.WindowSize; i++ {
			window[i] = 0
		}

		coeffs := fft.Coefficients(nil, window)
		var peak float64
		for _, c := range coeffs {
			if m := cmplx.Abs(c); m > peak {
				peak = m
			}
		}

		frames = append(frames, Frame{
			Time:      float64(start) / float64(sampleRate),
			Magnitude: peak,
		})
	}
	return frames
}
