package events

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickethub/internal/domain/events"
)

func TestEffectiveCapacity(t *testing.T) {
	got, err := effectiveCapacity(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	got, err = effectiveCapacity(0, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, got)

	got, err = effectiveCapacity(80, 100)
	require.NoError(t, err)
	assert.Equal(t, 80, got)

	_, err = effectiveCapacity(101, 100)
	assert.ErrorIs(t, err, errCapacityLimit)
}

func TestEventRequestApply(t *testing.T) {
	start := time.Date(2025, 8, 1, 18, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	neg := -1

	var ev events.Event
	assert.ErrorIs(t, eventRequest{}.apply(&ev), errTitleRequired)
	assert.ErrorIs(t, eventRequest{Title: "Gala"}.apply(&ev), errStartRequired)

	ev = events.Event{}
	assert.ErrorIs(t, eventRequest{Title: "Gala", StartsAt: &start, EndsAt: &end}.apply(&ev), errEndBeforeStart)

	ev = events.Event{}
	assert.ErrorIs(t, eventRequest{Title: "Gala", StartsAt: &start, Capacity: &neg}.apply(&ev), errBadCapacity)

	ev = events.Event{Title: "Gala", StartsAt: start, Venue: "Accra"}
	require.NoError(t, eventRequest{Description: "Black tie"}.apply(&ev))
	assert.Equal(t, "Gala", ev.Title)
	assert.Equal(t, "Accra", ev.Venue)
	assert.Equal(t, "Black tie", ev.Description)
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestRenderOGImagePlain(t *testing.T) {
	out, err := renderOGImage(nil)
	require.NoError(t, err)

	img := decodePNG(t, out)
	assert.Equal(t, ogWidth, img.Bounds().Dx())
	assert.Equal(t, ogHeight, img.Bounds().Dy())

	r, g, b, _ := img.At(10, 10).RGBA()
	assert.Equal(t, uint32(brandColor.R), r>>8)
	assert.Equal(t, uint32(brandColor.G), g>>8)
	assert.Equal(t, uint32(brandColor.B), b>>8)
}

func TestRenderOGImageFromCover(t *testing.T) {
	src := imaging.New(400, 400, color.NRGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, src, imaging.PNG))

	out, err := renderOGImage(buf.Bytes())
	require.NoError(t, err)
	img := decodePNG(t, out)
	assert.Equal(t, ogWidth, img.Bounds().Dx())
	assert.Equal(t, ogHeight, img.Bounds().Dy())

	r, _, _, _ := img.At(600, 100).RGBA()
	assert.InDelta(t, 200, float64(r>>8), 1)
}

func TestRenderOGImageIgnoresBrokenCover(t *testing.T) {
	out, err := renderOGImage([]byte("not an image"))
	require.NoError(t, err)
	assert.Equal(t, ogWidth, decodePNG(t, out).Bounds().Dx())
}

func TestNormalizeCover(t *testing.T) {
	src := imaging.New(2000, 1000, color.NRGBA{G: 120, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, src, imaging.PNG))

	out, err := normalizeCover(&buf)
	require.NoError(t, err)
	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, coverMaxWidth, img.Bounds().Dx())
	assert.Equal(t, 800, img.Bounds().Dy())

	_, err = normalizeCover(bytes.NewReader([]byte("nope")))
	assert.ErrorIs(t, err, errNotImage)
}
