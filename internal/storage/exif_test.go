package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEmbeddedMetadata_NoExifBlock(t *testing.T) {
	// Arbitrary bytes with no EXIF block decode to empty metadata, not
	// an error; the verifier downstream rejects the upload.
	meta, err := ExtractEmbeddedMetadata([]byte("not a photo at all"))

	require.NoError(t, err)
	assert.False(t, meta.HasGPS())
	assert.Empty(t, meta.RawTimestamp)
}

func TestEmbeddedMetadataHasGPS(t *testing.T) {
	lat, lon := 12.9716, 77.5946

	assert.False(t, (&EmbeddedMetadata{}).HasGPS())
	assert.False(t, (&EmbeddedMetadata{Lat: &lat}).HasGPS())
	assert.True(t, (&EmbeddedMetadata{Lat: &lat, Lon: &lon}).HasGPS())

	var nilMeta *EmbeddedMetadata
	assert.False(t, nilMeta.HasGPS())
}
