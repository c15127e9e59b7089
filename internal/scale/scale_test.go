package scale_test

import (
	"math"
	"testing"

	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/geometry"
	"github.com/phrazzld/measure-api/internal/scale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ppm(v float64) *float64 { return &v }

func TestFromMetadata(t *testing.T) {
	t.Parallel()

	s, err := scale.FromMetadata(domain.PhotoMetadata{PixelsPerMm: ppm(5)})
	require.NoError(t, err)
	assert.Equal(t, 5.0, s.PixelsPerMm)

	for _, md := range []domain.PhotoMetadata{
		{},
		{PixelsPerMm: ppm(0)},
		{PixelsPerMm: ppm(-2)},
		{PixelsPerMm: ppm(math.NaN())},
		{PixelsPerMm: ppm(math.Inf(1))},
	} {
		_, err := scale.FromMetadata(md)
		assert.ErrorIs(t, err, scale.ErrScaleUnavailable)
	}
}

func TestFromPhoto(t *testing.T) {
	t.Parallel()

	_, err := scale.FromPhoto(nil)
	assert.ErrorIs(t, err, scale.ErrScaleUnavailable)

	photo := &domain.Photo{Metadata: domain.PhotoMetadata{PixelsPerMm: ppm(2)}}
	s, err := scale.FromPhoto(photo)
	require.NoError(t, err)
	assert.Equal(t, 2.0, s.PixelsPerMm)
	assert.Equal(t, "marker not detected: cannot compute scale", scale.ErrScaleUnavailable.Error())
}

func TestScaleConversions(t *testing.T) {
	t.Parallel()

	s := scale.Scale{PixelsPerMm: 5}
	length, err := s.LengthMm(geometry.Distance(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 50, Y: 0}))
	require.NoError(t, err)
	assert.Equal(t, 10.0, length)

	area, err := s.AreaMm2(2500)
	require.NoError(t, err)
	assert.Equal(t, 100.0, area)

	_, err = scale.Scale{}.LengthMm(10)
	assert.ErrorIs(t, err, geometry.ErrInvalidScale)
}
