package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func straightPath(n int) []Coordinate {
	path := make([]Coordinate, n)
	for i := range path {
		path[i] = Coordinate{Latitude: -22.9, Longitude: -42.5 + float64(i)*0.001}
	}
	return path
}

func TestNearestVertex(t *testing.T) {
	path := straightPath(5)

	assert.Equal(t, -1, NearestVertex(nil, centro))
	assert.Equal(t, 2, NearestVertex(path, Coordinate{Latitude: -22.9001, Longitude: -42.498}))

	// duplicated vertices tie, the lower index wins
	dup := []Coordinate{path[0], path[3], path[3], path[4]}
	assert.Equal(t, 1, NearestVertex(dup, path[3]))
}

func TestExtractSegment(t *testing.T) {
	path := straightPath(10)

	tests := []struct {
		name      string
		boarding  Coordinate
		alighting Coordinate
		want      []Coordinate
		forward   bool
	}{
		{
			name:      "forward trip returns inclusive slice",
			boarding:  path[2],
			alighting: path[7],
			want:      path[2:8],
			forward:   true,
		},
		{
			name:      "reverse trip returns the whole path",
			boarding:  path[7],
			alighting: path[2],
			want:      path,
			forward:   false,
		},
		{
			name:      "same vertex returns the whole path",
			boarding:  path[4],
			alighting: path[4],
			want:      path,
			forward:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractSegment(path, tt.boarding, tt.alighting)
			assert.Equal(t, tt.forward, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTrimEncoded(t *testing.T) {
	path := straightPath(10)
	encoded := EncodePolyline(path)

	trimmed := TrimEncoded(encoded, path[3], path[6])
	decoded, err := DecodePolyline(trimmed)
	require.NoError(t, err)
	require.Len(t, decoded, 4)
	for i, c := range decoded {
		assert.InDelta(t, path[3+i].Latitude, c.Latitude, 1e-5)
		assert.InDelta(t, path[3+i].Longitude, c.Longitude, 1e-5)
	}

	assert.Equal(t, encoded, TrimEncoded(encoded, path[6], path[3]), "reverse keeps the original string")
	assert.Equal(t, "", TrimEncoded("", path[0], path[1]))
}

func TestTrimEncoded_Idempotent(t *testing.T) {
	path := straightPath(8)
	encoded := EncodePolyline(path)

	first := TrimEncoded(encoded, path[1], path[5])
	assert.Equal(t, first, TrimEncoded(encoded, path[1], path[5]))
}
