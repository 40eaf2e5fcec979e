package audio

import (
	"errors"
	"io"

	"github.com/mewkiz/flac"
)

func decodeFlac(r io.Reader) (Signal, error) {
	stream, err := flac.New(r)
	if err != nil {
		return Signal{}, err
	}
	defer stream.Close()

	var (
		scale = float64(int64(1) << (stream.Info.BitsPerSample - 1))
		out   []float64
	)
	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Signal{}, err
		}
		if len(frame.Subframes) == 0 {
			continue
		}
		channels := float64(len(frame.Subframes))
		for i := range frame.Subframes[0].Samples {
			var sum float64
			for _, sub := range frame.Subframes {
				sum += float64(sub.Samples[i])
			}
			out = append(out, sum/channels/scale)
		}
	}
	return Signal{Samples: out, SampleRate: int(stream.Info.SampleRate)}, nil
}
