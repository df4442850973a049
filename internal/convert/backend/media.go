package backend

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cuongbtq/convert-be/internal/convert/domain"
)

// codecArgs names the encoders ffmpeg uses for one target container. An
// empty video codec marks an audio-only container; those get -vn so video
// sources still transcode cleanly to audio targets.
type codecArgs struct {
	video string
	audio string
	extra []string
}

// codecByContainer is the closed mapping from target container to codec
// selection. It must cover every media target the support matrix offers.
var codecByContainer = map[string]codecArgs{
	// audio containers
	"mp3":  {audio: "libmp3lame"},
	"wav":  {audio: "pcm_s16le"},
	"ogg":  {audio: "libvorbis"},
	"flac": {audio: "flac"},
	"aac":  {audio: "aac"},
	"m4a":  {audio: "aac"},

	// video containers
	"mp4":  {video: "libx264", audio: "aac", extra: []string{"-movflags", "+faststart"}},
	"mov":  {video: "libx264", audio: "aac"},
	"mkv":  {video: "libx264", audio: "aac"},
	"webm": {video: "libvpx-vp9", audio: "libopus"},
	"avi":  {video: "mpeg4", audio: "libmp3lame"},
}

// MediaAdapter transcodes audio and video by spawning ffmpeg.
type MediaAdapter struct {
	runner  Runner
	binary  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewMediaAdapter creates the ffmpeg-backed media adapter.
func NewMediaAdapter(runner Runner, binary string, timeout time.Duration, logger *slog.Logger) *MediaAdapter {
	return &MediaAdapter{
		runner:  runner,
		binary:  binary,
		timeout: timeout,
		logger:  logger,
	}
}

func (a *MediaAdapter) Name() string { return a.binary }

// Convert runs one ffmpeg invocation with explicit codec selection for
// targetFormat. The process is bounded by the adapter timeout and killed
// with the context; its stderr tail becomes the failure diagnostic.
func (a *MediaAdapter) Convert(ctx context.Context, inputPath, outputDir, targetFormat string) (string, error) {
	target := strings.ToLower(targetFormat)
	codecs, ok := codecByContainer[target]
	if !ok {
		return "", domain.NewConversionError(
			domain.FailureUnsupportedConversion,
			a.binary,
			"no codec mapping for target container ."+target,
		)
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outputDir, base+"."+target)

	args := []string{"-y", "-i", inputPath}
	if codecs.video == "" {
		// audio-only target: drop any video stream
		args = append(args, "-vn", "-c:a", codecs.audio)
	} else {
		args = append(args, "-c:v", codecs.video, "-c:a", codecs.audio)
	}
	args = append(args, codecs.extra...)
	args = append(args, outputPath)

	runCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	a.logger.Info("Spawning media backend",
		slog.String("binary", a.binary),
		slog.String("target_format", target),
		slog.String("input", filepath.Base(inputPath)),
	)

	output, err := a.runner.Run(runCtx, a.binary, args...)
	if err != nil {
		return "", translateRunError(runCtx, a.binary, err, output)
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		return "", &domain.ConversionError{
			Kind:    domain.FailureBackendError,
			Backend: a.binary,
			Detail:  "backend exited cleanly but produced no artifact: " + diagnosticTail(output, nil),
		}
	}

	return outputPath, nil
}
