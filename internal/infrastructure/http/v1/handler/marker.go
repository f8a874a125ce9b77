package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/slippymap/internal/geo"
	"github.com/jaennil/slippymap/internal/infrastructure/http/v1/dto"
	"github.com/jaennil/slippymap/internal/mapview"
)

// PutMarker moves the marker with the given id, creating it if needed.
func (h *Handler) PutMarker(c *gin.Context) {
	id := c.Param("id")

	var req dto.MarkerRequest
	if !h.bind(c, &req) {
		return
	}

	created := false
	ok := h.run(c, func(*mapview.MapView) error {
		if p, exists := h.markers.Point(id); exists {
			p.Update(*req.Lat, *req.Lon)
			return nil
		}
		h.markers.Add(id, geo.NewMapPoint(*req.Lat, *req.Lon))
		created = true
		return nil
	})
	if !ok {
		return
	}

	point := geo.Point{Lat: *req.Lat, Lon: *req.Lon}
	if created {
		h.RespondWithJSON(c, http.StatusCreated, "marker created", point)
		return
	}
	h.RespondWithJSON(c, http.StatusOK, "marker moved", point)
}

func (h *Handler) DeleteMarker(c *gin.Context) {
	id := c.Param("id")

	ok := h.run(c, func(*mapview.MapView) error {
		if !h.markers.Remove(id) {
			return ErrMarkerNotFound
		}
		return nil
	})
	if !ok {
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "marker removed", nil)
}
