package api

import "github.com/nekogravitycat/facility-booking-bot/internal/reservation"

// ReservationResponse mirrors the external row schema.
type ReservationResponse struct {
	ID            string `json:"id"`
	Facility      string `json:"facility"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	TimePeriod    string `json:"time_period"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	ContactNumber string `json:"contact_number"`
}

func NewReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:            r.ID,
		Facility:      r.Facility,
		Date:          r.Date,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		TimePeriod:    r.TimePeriod(),
		Email:         r.Email,
		Name:          r.Name,
		ContactNumber: r.ContactNumber,
	}
}

type ListReservationsResponse struct {
	Reservations []ReservationResponse `json:"reservations"`
	Total        int                   `json:"total"`
}
