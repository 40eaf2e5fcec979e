package audio

import (
	"io"
	"os"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
)

const streamChunk = 512

func decodeWav(r io.Reader) (Signal, error) {
	stream, format, err := wav.Decode(r)
	if err != nil {
		return Signal{}, err
	}
	defer stream.Close()

	samples, err := drain(stream)
	if err != nil {
		return Signal{}, err
	}
	return Signal{Samples: samples, SampleRate: int(format.SampleRate)}, nil
}

// drain reads a streamer to the end, folding both channels to mono.
// beep duplicates mono sources onto both channels so the average is exact for them.
func drain(stream beep.Streamer) (out []float64, err error) {
	var buf = make([][2]float64, streamChunk)
	for {
		n, ok := stream.Stream(buf)
		for i := 0; i < n; i++ {
			out = append(out, (buf[i][0]+buf[i][1])/2)
		}
		if !ok {
			break
		}
	}
	return out, stream.Err()
}

// sliceStreamer plays a mono buffer on both channels.
type sliceStreamer struct {
	samples []float64
	pos     int
	clip    bool
}

func (s *sliceStreamer) Stream(buf [][2]float64) (n int, ok bool) {
	if s.pos >= len(s.samples) {
		return 0, false
	}
	for n < len(buf) && s.pos < len(s.samples) {
		v := s.samples[s.pos]
		if s.clip {
			v = max(-1, min(1, v))
		}
		buf[n] = [2]float64{v, v}
		n++
		s.pos++
	}
	return n, true
}

func (s *sliceStreamer) Err() error {
	return nil
}

// EncodeWav writes samples as a 16-bit mono wav stream. Samples are clipped to [-1, 1].
func EncodeWav(w io.WriteSeeker, samples []float64, sampleRate int) error {
	format := beep.Format{
		SampleRate:  beep.SampleRate(sampleRate),
		NumChannels: 1,
		Precision:   2,
	}
	return wav.Encode(w, &sliceStreamer{samples: samples, clip: true}, format)
}

// SaveWav saves mono wav file from sample vector
func SaveWav(outputFile string, vec []float64, sr int) error {
	f, err := os.Create(outputFile)
	if err != nil {
		return err
	}
	if err := EncodeWav(f, vec, sr); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
