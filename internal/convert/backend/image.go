package backend

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/webp"

	"github.com/cuongbtq/convert-be/internal/convert/domain"
)

const imageBackendName = "image"

// ImageOptions holds the fixed encoder profile knobs.
type ImageOptions struct {
	Workers     int // max concurrent encodes
	JPEGQuality int // 1-100
	WebPQuality int // 1-100
}

// DefaultImageOptions returns the profile used when config leaves the
// image section empty.
func DefaultImageOptions() ImageOptions {
	return ImageOptions{Workers: 4, JPEGQuality: 85, WebPQuality: 80}
}

// ImageAdapter converts raster images in-process. Encodes are CPU-bound,
// so they run through a bounded pool rather than freely on request
// goroutines.
type ImageAdapter struct {
	opts   ImageOptions
	pool   *pool
	logger *slog.Logger
}

// NewImageAdapter creates the in-process image adapter.
func NewImageAdapter(opts ImageOptions, logger *slog.Logger) *ImageAdapter {
	return &ImageAdapter{
		opts:   opts,
		pool:   newPool(opts.Workers),
		logger: logger,
	}
}

func (a *ImageAdapter) Name() string { return imageBackendName }

// Convert decodes the input, then re-encodes it with the profile for
// targetFormat. A target with no explicit encoder profile falls back to
// the default (PNG) encoder instead of failing; the artifact still carries
// the requested extension. That fallback is a deliberate, documented
// policy carried over from the service contract.
func (a *ImageAdapter) Convert(ctx context.Context, inputPath, outputDir, targetFormat string) (string, error) {
	if err := a.pool.acquire(ctx); err != nil {
		return "", domain.WrapConversionError(domain.FailureBackendError, imageBackendName, err)
	}
	defer a.pool.release()

	img, err := a.decode(inputPath)
	if err != nil {
		return "", &domain.ConversionError{
			Kind:    domain.FailureBackendError,
			Backend: imageBackendName,
			Detail:  fmt.Sprintf("failed to decode %s: %v", filepath.Base(inputPath), err),
			Err:     err,
		}
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outputDir, base+"."+targetFormat)

	if err := a.encode(img, outputPath, targetFormat); err != nil {
		return "", &domain.ConversionError{
			Kind:    domain.FailureBackendError,
			Backend: imageBackendName,
			Detail:  fmt.Sprintf("failed to encode to %s: %v", targetFormat, err),
			Err:     err,
		}
	}

	return outputPath, nil
}

func (a *ImageAdapter) decode(inputPath string) (image.Image, error) {
	if strings.EqualFold(filepath.Ext(inputPath), ".webp") {
		f, err := os.Open(inputPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return webp.Decode(f)
	}
	return imaging.Open(inputPath)
}

func (a *ImageAdapter) encode(img image.Image, outputPath, targetFormat string) error {
	switch strings.ToLower(targetFormat) {
	case "jpg", "jpeg":
		return imaging.Save(img, outputPath, imaging.JPEGQuality(a.opts.JPEGQuality))
	case "png":
		return imaging.Save(img, outputPath, imaging.PNGCompressionLevel(png.BestCompression))
	case "gif", "bmp", "tif", "tiff":
		return imaging.Save(img, outputPath)
	case "webp":
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		return webp.Encode(f, img, webp.Options{Quality: a.opts.WebPQuality})
	default:
		// No explicit profile: default encoder, requested extension kept.
		a.logger.Warn("No encoder profile for target format, using default encoder",
			slog.String("target_format", targetFormat),
		)
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		return png.Encode(f, img)
	}
}
