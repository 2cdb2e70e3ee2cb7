package storage

import (
	"bytes"

	"github.com/rwcarlsen/goexif/exif"
)

// EmbeddedMetadata is the capture metadata a photo carries in its own
// file: GPS position and the camera's timestamp. Fields are left nil /
// empty when the photo carries no usable tag; the verifier decides
// whether that rejects the upload.
type EmbeddedMetadata struct {
	Lat          *float64
	Lon          *float64
	RawTimestamp string
}

// HasGPS reports whether both coordinates were present.
func (m *EmbeddedMetadata) HasGPS() bool {
	return m != nil && m.Lat != nil && m.Lon != nil
}

// ExtractEmbeddedMetadata decodes the EXIF block of a JPEG/TIFF photo.
// A photo with no EXIF block at all yields an empty EmbeddedMetadata,
// not an error; distinguishing "no metadata" from "corrupt file" is
// left to the caller.
func ExtractEmbeddedMetadata(data []byte) (*EmbeddedMetadata, error) {
	meta := &EmbeddedMetadata{}

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		// A photo without an EXIF block decodes with a critical error;
		// non-critical errors still leave usable tags behind.
		if x == nil || exif.IsCriticalError(err) {
			return meta, nil
		}
	}

	if lat, lon, err := x.LatLong(); err == nil {
		meta.Lat = &lat
		meta.Lon = &lon
	}

	// DateTimeOriginal is the shutter instant; DateTime is the file
	// modification fallback some cameras write instead.
	for _, field := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTime} {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		if value, err := tag.StringVal(); err == nil && value != "" {
			meta.RawTimestamp = value
			break
		}
	}

	return meta, nil
}
