// Package formats maps file extensions to conversion categories and
// exposes the capability-gated support matrix.
package formats

import (
	"path/filepath"
	"strings"

	"github.com/cuongbtq/convert-be/internal/convert/capability"
	"github.com/cuongbtq/convert-be/internal/convert/domain"
)

// Extension sets are disjoint; membership decides the category.
var (
	imageExts = extSet("jpg", "jpeg", "png", "gif", "webp", "bmp", "tif", "tiff")
	audioExts = extSet("mp3", "wav", "ogg", "flac", "aac", "m4a", "wma")
	videoExts = extSet("mp4", "webm", "avi", "mov", "mkv", "flv", "wmv", "mpeg", "mpg")
	docExts   = extSet("pdf", "doc", "docx", "odt", "rtf", "txt", "html", "xls", "xlsx", "ods", "ppt", "pptx", "odp")
)

// Target formats per category. Media targets are keyed by the codec table
// in the media adapter; keep the two in sync.
var (
	imageTargets = []string{"jpg", "jpeg", "png", "gif", "webp", "bmp", "tiff"}
	audioTargets = []string{"mp3", "wav", "ogg", "flac", "aac", "m4a"}
	videoTargets = []string{"mp4", "webm", "avi", "mov", "mkv", "mp3", "wav", "aac"}
	docTargets   = []string{"pdf", "docx", "odt", "rtf", "txt", "html"}
)

func extSet(exts ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		s[e] = struct{}{}
	}
	return s
}

// Extension returns the lower-cased extension of fileName without the dot.
func Extension(fileName string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
}

// Classify maps a file name to its conversion category by extension.
// Unknown extensions default to Document: the document backend is the
// only one with a chance of handling arbitrary text-like inputs.
func Classify(fileName string) domain.Category {
	ext := Extension(fileName)
	switch {
	case member(imageExts, ext):
		return domain.CategoryImage
	case member(audioExts, ext):
		return domain.CategoryAudio
	case member(videoExts, ext):
		return domain.CategoryVideo
	default:
		return domain.CategoryDocument
	}
}

func member(set map[string]struct{}, ext string) bool {
	_, ok := set[ext]
	return ok
}

// SupportedTargets returns the allowed target formats for a source format,
// gated by current capabilities. A category whose backend is unavailable
// yields an empty set, so unsupported conversions are visible to a caller
// before any upload happens. The source format itself is excluded.
func SupportedTargets(sourceFormat string, caps capability.Set) []string {
	src := strings.ToLower(strings.TrimPrefix(sourceFormat, "."))
	category := Classify("." + src)

	var targets []string
	switch category {
	case domain.CategoryImage:
		if caps.Image {
			targets = imageTargets
		}
	case domain.CategoryAudio:
		if caps.Media {
			targets = audioTargets
		}
	case domain.CategoryVideo:
		if caps.Media {
			targets = videoTargets
		}
	case domain.CategoryDocument:
		if caps.Document {
			targets = docTargets
		}
	}

	out := make([]string, 0, len(targets))
	for _, t := range targets {
		if t != src {
			out = append(out, t)
		}
	}
	return out
}

// Matrix returns the full source-format to target-formats mapping for the
// current capabilities.
func Matrix(caps capability.Set) map[string][]string {
	m := make(map[string][]string)
	for _, set := range []map[string]struct{}{imageExts, audioExts, videoExts, docExts} {
		for src := range set {
			m[src] = SupportedTargets(src, caps)
		}
	}
	return m
}

// Validate checks that fileName can be converted to targetFormat under the
// current capabilities. Returns a typed ConversionError distinguishing an
// absent backend from an unsupported (category, target) pair. It must be
// called before any file is persisted or process spawned.
func Validate(fileName, targetFormat string, caps capability.Set) (domain.Category, error) {
	category := Classify(fileName)
	target := strings.ToLower(strings.TrimPrefix(targetFormat, "."))

	available := map[domain.Category]bool{
		domain.CategoryImage:    caps.Image,
		domain.CategoryAudio:    caps.Media,
		domain.CategoryVideo:    caps.Media,
		domain.CategoryDocument: caps.Document,
	}

	if !available[category] {
		return category, domain.NewConversionError(
			domain.FailureBackendUnavailable,
			string(category),
			"the "+string(category)+" conversion backend is not installed",
		)
	}

	for _, t := range SupportedTargets(Extension(fileName), caps) {
		if t == target {
			return category, nil
		}
	}

	return category, domain.NewConversionError(
		domain.FailureUnsupportedConversion,
		string(category),
		"cannot convert ."+Extension(fileName)+" to ."+target,
	)
}
