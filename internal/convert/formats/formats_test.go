package formats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/convert-be/internal/convert/capability"
	"github.com/cuongbtq/convert-be/internal/convert/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		fileName string
		want     domain.Category
	}{
		{"photo.png", domain.CategoryImage},
		{"photo.JPEG", domain.CategoryImage},
		{"song.mp3", domain.CategoryAudio},
		{"clip.mov", domain.CategoryVideo},
		{"report.docx", domain.CategoryDocument},
		{"report.pdf", domain.CategoryDocument},
		// Unknown extensions fall back to document.
		{"data.xyz", domain.CategoryDocument},
		{"README", domain.CategoryDocument},
		{"archive.tar.gz", domain.CategoryDocument},
	}

	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.fileName))
		})
	}
}

func TestSupportedTargets(t *testing.T) {
	allCaps := capability.Set{Image: true, Media: true, Document: true}

	t.Run("image targets exclude the source format", func(t *testing.T) {
		targets := SupportedTargets("png", allCaps)
		assert.Contains(t, targets, "webp")
		assert.Contains(t, targets, "jpg")
		assert.NotContains(t, targets, "png")
	})

	t.Run("video targets include audio extraction", func(t *testing.T) {
		targets := SupportedTargets("mov", allCaps)
		assert.Contains(t, targets, "mp4")
		assert.Contains(t, targets, "mp3")
	})

	t.Run("missing media backend empties video targets", func(t *testing.T) {
		targets := SupportedTargets("mov", capability.Set{Image: true, Document: true})
		assert.Empty(t, targets)
	})

	t.Run("missing document backend empties document targets", func(t *testing.T) {
		targets := SupportedTargets("docx", capability.Set{Image: true, Media: true})
		assert.Empty(t, targets)
	})
}

func TestValidate(t *testing.T) {
	allCaps := capability.Set{Image: true, Media: true, Document: true}

	tests := []struct {
		name         string
		fileName     string
		targetFormat string
		caps         capability.Set
		wantCategory domain.Category
		wantKind     domain.FailureKind // empty means no error
	}{
		{
			name:         "supported image conversion",
			fileName:     "photo.png",
			targetFormat: "webp",
			caps:         allCaps,
			wantCategory: domain.CategoryImage,
		},
		{
			name:         "target format with leading dot",
			fileName:     "photo.png",
			targetFormat: ".jpg",
			caps:         allCaps,
			wantCategory: domain.CategoryImage,
		},
		{
			name:         "document backend absent",
			fileName:     "report.docx",
			targetFormat: "pdf",
			caps:         capability.Set{Image: true, Media: true},
			wantCategory: domain.CategoryDocument,
			wantKind:     domain.FailureBackendUnavailable,
		},
		{
			name:         "unsupported target for category",
			fileName:     "photo.png",
			targetFormat: "mp4",
			caps:         allCaps,
			wantCategory: domain.CategoryImage,
			wantKind:     domain.FailureUnsupportedConversion,
		},
		{
			name:         "identity conversion rejected",
			fileName:     "photo.png",
			targetFormat: "png",
			caps:         allCaps,
			wantCategory: domain.CategoryImage,
			wantKind:     domain.FailureUnsupportedConversion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, err := Validate(tt.fileName, tt.targetFormat, tt.caps)
			assert.Equal(t, tt.wantCategory, category)

			if tt.wantKind == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, domain.KindOf(err))
			}
		})
	}
}

func TestMatrix(t *testing.T) {
	m := Matrix(capability.Set{Image: true})

	// Image sources keep their targets, everything else is gated off.
	assert.NotEmpty(t, m["png"])
	assert.Empty(t, m["mp3"])
	assert.Empty(t, m["docx"])
}
