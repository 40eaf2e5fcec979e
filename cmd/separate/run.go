package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neurlang/gosep/audio"
	"github.com/neurlang/gosep/mel"
	"github.com/neurlang/gosep/separate"
	"github.com/neurlang/gosep/spectrogram"
)

var runCmd = &cobra.Command{
	Use:   "run <audio_file>",
	Short: "Separate an audio file into one wav per source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		methodName, err := cmd.Flags().GetString("method")
		if err != nil {
			return fmt.Errorf("failed to read 'method' flag: %w", err)
		}
		outDir, err := cmd.Flags().GetString("out")
		if err != nil {
			return fmt.Errorf("failed to read 'out' flag: %w", err)
		}
		withPNG, err := cmd.Flags().GetBool("png")
		if err != nil {
			return fmt.Errorf("failed to read 'png' flag: %w", err)
		}
		method, err := separate.ParseMethod(methodName)
		if err != nil {
			return err
		}

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		sep, err := separate.New(cfg, separate.WithLogger(logger))
		if err != nil {
			return err
		}
		res, err := sep.Run(cmd.Context(), method, args[0])
		if err != nil {
			return err
		}

		paths, err := writeSources(outDir, args[0], res)
		if err != nil {
			return err
		}
		if withPNG {
			images, err := writeImages(paths, res)
			if err != nil {
				return err
			}
			paths = append(paths, images...)
		}
		for _, p := range paths {
			logger.Info("source written", zap.String("path", p))
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringP("method", "m", string(separate.MethodNMF), "separation method: deep_clustering, l41 or nmf")
	runCmd.Flags().StringP("out", "o", "", "output directory (default: next to the input)")
	runCmd.Flags().Bool("png", false, "also write a mel spectrogram image per source")
}

// writeSources saves every source as <base>-<n>.wav and returns the paths.
func writeSources(outDir, input string, res *separate.Result) ([]string, error) {
	if outDir == "" {
		outDir = filepath.Dir(input)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))

	paths := make([]string, 0, len(res.Sources))
	for i, src := range res.Sources {
		p := filepath.Join(outDir, fmt.Sprintf("%s-%d.wav", base, i+1))
		if err := audio.SaveWav(p, src, res.SampleRate); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// writeImages renders a mel spectrogram next to every written wav.
func writeImages(wavPaths []string, res *separate.Result) ([]string, error) {
	feat := spectrogram.NewConfig()
	feat.SampleRate = res.SampleRate
	feat.Preemphasis = 0
	opts := mel.NewOptions()

	paths := make([]string, 0, len(wavPaths))
	for i, src := range res.Sources {
		spec, err := feat.Features(audio.Signal{Samples: src, SampleRate: res.SampleRate})
		if err != nil {
			return nil, err
		}
		melSpec, err := mel.Spectrogram(spectrogram.Magnitude(spec), res.SampleRate, opts)
		if err != nil {
			return nil, err
		}
		p := strings.TrimSuffix(wavPaths[i], ".wav") + ".png"
		if err := mel.SavePNG(p, melSpec, opts.Reverse); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}
