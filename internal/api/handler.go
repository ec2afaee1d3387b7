package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/facility-booking-bot/internal/pkg/response"
	"github.com/nekogravitycat/facility-booking-bot/internal/reservation"
)

type Handler struct {
	reservations reservation.Service
}

func NewHandler(reservations reservation.Service) *Handler {
	return &Handler{reservations: reservations}
}

// List returns the full committed reservation set, freshly read from the
// store.
func (h *Handler) List(c *gin.Context) {
	rows, err := h.reservations.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]ReservationResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, NewReservationResponse(r))
	}
	c.JSON(http.StatusOK, ListReservationsResponse{
		Reservations: out,
		Total:        len(out),
	})
}
