package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/slippymap/internal/geo"
	"github.com/jaennil/slippymap/internal/infrastructure/http/v1/dto"
	"github.com/jaennil/slippymap/internal/mapview"
)

// Frame returns the last rendered frame for an external renderer.
func (h *Handler) Frame(c *gin.Context) {
	var frame mapview.Frame
	ok := h.run(c, func(v *mapview.MapView) error {
		frame = v.LastFrame()
		return nil
	})
	if !ok {
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "frame", frame)
}

func (h *Handler) View(c *gin.Context) {
	var resp dto.ViewResponse
	ok := h.run(c, func(v *mapview.MapView) error {
		resp = h.describe(v)
		return nil
	})
	if !ok {
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "view", resp)
}

// SetView moves the map to a center and optionally a zoom and size.
func (h *Handler) SetView(c *gin.Context) {
	var req dto.ViewRequest
	if !h.bind(c, &req) {
		return
	}

	var resp dto.ViewResponse
	ok := h.run(c, func(v *mapview.MapView) error {
		v.SetCenter(geo.Point{Lat: *req.Lat, Lon: *req.Lon})
		if req.Zoom != nil {
			v.SetZoom(*req.Zoom)
		}
		if req.Width > 0 && req.Height > 0 {
			v.SetSize(req.Width, req.Height)
		}
		resp = h.describe(v)
		return nil
	})
	if !ok {
		return
	}

	requestLogger(c).Info("view changed", "lat", resp.Lat, "lon", resp.Lon, "zoom", resp.Zoom)
	h.RespondWithJSON(c, http.StatusOK, "view updated", resp)
}

func (h *Handler) Fly(c *gin.Context) {
	var req dto.FlyRequest
	if !h.bind(c, &req) {
		return
	}

	duration := time.Duration(req.DurationMS) * time.Millisecond
	var resp dto.ViewResponse
	ok := h.run(c, func(v *mapview.MapView) error {
		v.FlyTo(duration, geo.Point{Lat: *req.Lat, Lon: *req.Lon}, *req.Zoom)
		resp = h.describe(v)
		return nil
	})
	if !ok {
		return
	}

	h.RespondWithJSON(c, http.StatusAccepted, "flight started", resp)
}

func (h *Handler) describe(v *mapview.MapView) dto.ViewResponse {
	center := v.Center()
	width, height := v.Size()
	return dto.ViewResponse{
		Lat:     center.Lat,
		Lon:     center.Lon,
		Zoom:    v.Zoom(),
		Level:   v.SelectedZoom(),
		Width:   width,
		Height:  height,
		Flying:  v.Flying(),
		Markers: h.markers.Len(),
	}
}

func (h *Handler) CacheStats(c *gin.Context) {
	var stats mapview.Stats
	ok := h.run(c, func(v *mapview.MapView) error {
		stats = v.Stats()
		return nil
	})
	if !ok {
		return
	}

	requestLogger(c).Debug("cache statistics", "stats", stats)
	h.RespondWithJSON(c, http.StatusOK, "cache statistics", stats)
}
