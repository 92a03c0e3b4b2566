package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/service/flights"
	"github.com/gin-gonic/gin"
)

type FlightHandler struct {
	service flights.FlightUseCase
}

type flightResponse struct {
	ID             int64        `json:"id"`
	FlightNumber   string       `json:"flight_number"`
	Airline        string       `json:"airline"`
	FromAirport    string       `json:"from_airport"`
	ToAirport      string       `json:"to_airport"`
	DepartureTime  string       `json:"departure_time"`
	ArrivalTime    string       `json:"arrival_time"`
	BasePrice      domain.Money `json:"base_price"`
	TotalSeats     int          `json:"total_seats"`
	AvailableSeats int          `json:"available_seats"`
}

func toFlightResponse(f domain.Flight) flightResponse {
	return flightResponse{
		ID:             f.ID,
		FlightNumber:   f.FlightNumber,
		Airline:        f.Airline,
		FromAirport:    f.FromAirport,
		ToAirport:      f.ToAirport,
		DepartureTime:  f.DepartureTime.Format(time.RFC3339),
		ArrivalTime:    f.ArrivalTime.Format(time.RFC3339),
		BasePrice:      f.BasePrice,
		TotalSeats:     f.TotalSeats,
		AvailableSeats: f.AvailableSeats,
	}
}

func NewFlightHandler(service flights.FlightUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("/flights", h.list)
	router.GET("/flights/:id", h.get)
}

func (h *FlightHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]flightResponse, 0, len(list))
	for _, f := range list {
		out = append(out, toFlightResponse(f))
	}
	c.JSON(http.StatusOK, out)
}

func (h *FlightHandler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFlightResponse(*flight))
}
