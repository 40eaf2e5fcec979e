package audio

import (
	"fmt"

	"github.com/faiface/beep"
)

// ResampleQuality is the beep interpolation quality used by Resample.
const ResampleQuality = 4

// Resample converts the signal to the given sample rate. The input is returned
// unchanged when the rates already match.
func Resample(sig Signal, sampleRate int) (Signal, error) {
	if sig.SampleRate == sampleRate {
		return sig, nil
	}
	if sampleRate <= 0 || sig.SampleRate <= 0 {
		return Signal{}, fmt.Errorf("audio: cannot resample %d Hz to %d Hz", sig.SampleRate, sampleRate)
	}
	src := &sliceStreamer{samples: sig.Samples}
	resampler := beep.Resample(ResampleQuality, beep.SampleRate(sig.SampleRate), beep.SampleRate(sampleRate), src)
	out, err := drain(resampler)
	if err != nil {
		return Signal{}, fmt.Errorf("resample: %w", err)
	}
	return Signal{Samples: out, SampleRate: sampleRate}, nil
}
