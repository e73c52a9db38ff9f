package app

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/roman-kulish/spectrum-relay/internal/spectrum"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	return run(ctx, config, logger, spectrum.DialZMQ)
}

func run(ctx context.Context, config *Config, logger *slog.Logger, dial spectrum.DialFunc) error {
	logger.Info("averaging power spectrum",
		slog.String("endpoint", config.Endpoint),
		slog.Int("fftSize", config.FFTSize),
		slog.Int("reads", config.Reads),
		slog.Duration("timeout", config.Timeout))

	averager := spectrum.NewAverager(
		spectrum.WithLogger(logger),
		spectrum.WithReceiveTimeout(config.Timeout),
		spectrum.WithDialer(dial),
	)

	mean, err := averager.Average(ctx, config.Endpoint, config.FFTSize, config.Reads)
	if err != nil {
		return err
	}

	spec := NewPowerSpectrum(mean, config.CenterFrequency, config.SampleRate, config.Shifted)
	spec.Reads = config.Reads

	logger.Info("finished averaging",
		slog.Group("stats",
			slog.Int("bins", len(spec.Bins)),
			slog.Int("peakBin", spec.Peak.Index),
			slog.String("peakPower", fmt.Sprintf("%0.2fdB", spec.Peak.PowerDB)),
		))

	out := config.Output
	if out == nil {
		out = os.Stdout
	}
	if err = writeReport(out, spec); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if config.OutputFile == "" {
		return nil
	}

	bounds := spec.Bounds(config.MinPower, config.MaxPower)
	renderer := NewPlotRenderer(RenderConfig{
		Annotations: !config.NoAnnotations,
		Endpoint:    config.Endpoint,
	})

	logger.Info("rendering spectrum",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.String("minPower", fmt.Sprintf("%0.2fdB", bounds.Min)),
			slog.String("maxPower", fmt.Sprintf("%0.2fdB", bounds.Max)),
		))

	img, err := renderer.Render(spec, bounds)
	if err != nil {
		return fmt.Errorf("rendering spectrum: %w", err)
	}

	return writeImage(config.OutputFile, config.Format, img)
}

// writeReport prints one line per bin in the order the bins were received.
func writeReport(w io.Writer, spec *PowerSpectrum) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	if spec.HasFrequency {
		fmt.Fprintln(tw, "bin\tfrequency_hz\tpower\tpower_db\t")
	} else {
		fmt.Fprintln(tw, "bin\tpower\tpower_db\t")
	}

	for _, b := range spec.Bins {
		if spec.HasFrequency {
			fmt.Fprintf(tw, "%d\t%.1f\t%.6e\t%.2f\t\n", b.Index, b.Frequency, b.Power, b.PowerDB)
		} else {
			fmt.Fprintf(tw, "%d\t%.6e\t%.2f\t\n", b.Index, b.Power, b.PowerDB)
		}
	}

	return tw.Flush()
}

func writeImage(path string, format ImageFormat, img image.Image) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	switch format {
	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})
	default:
		err = png.Encode(out, img)
	}
	return err
}
