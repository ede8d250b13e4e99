package events

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tickethub/internal/domain/events"
)

const (
	maxUploadBytes = 5 << 20
	coverMaxWidth  = 1600

	ogWidth  = 1200
	ogHeight = 630
)

var brandColor = color.NRGBA{R: 0x1e, G: 0x1b, B: 0x4b, A: 0xff}

var errNotImage = errors.New("file is not a supported image")

// normalizeCover decodes an upload, applies EXIF orientation, caps the width
// and re-encodes it as JPEG.
func normalizeCover(r io.Reader) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errNotImage
	}
	if img.Bounds().Dx() > coverMaxWidth {
		img = imaging.Resize(img, coverMaxWidth, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderOGImage builds the 1200x630 social card for an event: the cover
// cropped to fill, or the brand colour when there is no usable cover, with a
// dark band along the bottom for the title overlay clients draw on top.
func renderOGImage(cover []byte) ([]byte, error) {
	var card *image.NRGBA
	if len(cover) > 0 {
		if img, err := imaging.Decode(bytes.NewReader(cover), imaging.AutoOrientation(true)); err == nil {
			card = imaging.Fill(img, ogWidth, ogHeight, imaging.Center, imaging.Lanczos)
		}
	}
	if card == nil {
		card = imaging.New(ogWidth, ogHeight, brandColor)
	}

	band := imaging.New(ogWidth, ogHeight/4, color.NRGBA{A: 0xff})
	card = imaging.Overlay(card, band, image.Pt(0, ogHeight-ogHeight/4), 0.55)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, card, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// POST /events/:id/image
func (h *Handler) UploadImage(c *gin.Context) {
	if h.Store == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Object storage not configured"})
		return
	}
	ev, ok := h.load(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes+1<<10)
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	if fh.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image must be 5MB or smaller"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read upload"})
		return
	}
	defer f.Close()

	data, err := normalizeCover(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	key := "events/" + ev.ID + "/cover-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12] + ".jpg"
	url, err := h.Store.Put(ctx, key, "image/jpeg", data)
	if err != nil {
		h.Log.Error("cover upload failed", zap.String("event_id", ev.ID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	old := ev.ImageKey
	if err := h.DB.WithContext(ctx).Model(&ev).Updates(map[string]interface{}{
		"image_key": key,
		"image_url": url,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save image"})
		return
	}
	if old != "" && old != key {
		if err := h.Store.Delete(ctx, old); err != nil {
			h.Log.Warn("old cover delete failed", zap.String("key", old), zap.Error(err))
		}
	}
	ev.ImageKey, ev.ImageURL = key, url
	c.JSON(http.StatusOK, ev)
}

// GET /events/:id/og-image
func (h *Handler) OGImage(c *gin.Context) {
	var ev events.Event
	if err := h.DB.WithContext(c.Request.Context()).First(&ev, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	var cover []byte
	if ev.ImageKey != "" && h.Store != nil {
		data, err := h.Store.Get(c.Request.Context(), ev.ImageKey)
		if err != nil {
			h.Log.Warn("cover fetch failed, using plain card", zap.String("event_id", ev.ID), zap.Error(err))
		} else {
			cover = data
		}
	}

	png, err := renderOGImage(cover)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render image"})
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}
