package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type ReservationHandler struct {
	service booking.BookingUseCase
}

type ticketResponse struct {
	ID            int64        `json:"id"`
	FlightID      int64        `json:"flight_id"`
	PassengerID   int64        `json:"passenger_id"`
	SeatClass     string       `json:"seat_class"`
	BaggageOption string       `json:"baggage_option"`
	SeatNumber    *string      `json:"seat_number,omitempty"`
	Price         domain.Money `json:"price"`
	BaggageFee    domain.Money `json:"baggage_fee"`
	Status        string       `json:"status"`
}

type paymentResponse struct {
	ID              int64        `json:"id"`
	Amount          domain.Money `json:"amount"`
	Method          string       `json:"method"`
	TransactionID   string       `json:"transaction_id"`
	Type            string       `json:"type"`
	Status          string       `json:"status"`
	ErrorMessage    string       `json:"error_message,omitempty"`
	TransactionDate string       `json:"transaction_date"`
}

type reservationResponse struct {
	ID             int64             `json:"id"`
	PNR            string            `json:"pnr"`
	UserID         int64             `json:"user_id"`
	Type           string            `json:"type"`
	Status         string            `json:"status"`
	PaymentStatus  string            `json:"payment_status"`
	PaymentMethod  string            `json:"payment_method,omitempty"`
	TotalPrice     domain.Money      `json:"total_price"`
	CreatedAt      string            `json:"reservation_date"`
	ExpirationDate string            `json:"expiration_date,omitempty"`
	Tickets        []ticketResponse  `json:"tickets"`
	Payments       []paymentResponse `json:"payments"`
	PassengerIDs   []int64           `json:"passenger_ids,omitempty"`
}

func toTicketResponse(t *domain.Ticket) ticketResponse {
	return ticketResponse{
		ID:            t.ID,
		FlightID:      t.FlightID,
		PassengerID:   t.PassengerID,
		SeatClass:     string(t.SeatClass),
		BaggageOption: string(t.BaggageOption),
		SeatNumber:    t.SeatNumber,
		Price:         t.Price,
		BaggageFee:    t.BaggageFee,
		Status:        string(t.Status),
	}
}

func toReservationResponse(r *domain.Reservation) reservationResponse {
	resp := reservationResponse{
		ID:            r.ID,
		PNR:           r.PNR,
		UserID:        r.UserID,
		Type:          string(r.Type),
		Status:        string(r.Status),
		PaymentStatus: string(r.PaymentStatus),
		PaymentMethod: string(r.PaymentMethod),
		TotalPrice:    r.TotalPrice,
		CreatedAt:     r.ReservationDate.Format(time.RFC3339),
		Tickets:       make([]ticketResponse, 0, len(r.Tickets)),
		Payments:      make([]paymentResponse, 0, len(r.Payments)),
		PassengerIDs:  r.PassengerIDs,
	}
	if r.ExpirationDate != nil {
		resp.ExpirationDate = r.ExpirationDate.Format(time.RFC3339)
	}
	for _, t := range r.Tickets {
		resp.Tickets = append(resp.Tickets, toTicketResponse(t))
	}
	for _, p := range r.Payments {
		resp.Payments = append(resp.Payments, paymentResponse{
			ID:              p.ID,
			Amount:          p.Amount,
			Method:          string(p.Method),
			TransactionID:   p.TransactionID,
			Type:            string(p.Type),
			Status:          string(p.Status),
			ErrorMessage:    p.ErrorMessage,
			TransactionDate: p.TransactionDate.Format(time.RFC3339),
		})
	}
	return resp
}

func NewReservationHandler(service booking.BookingUseCase) *ReservationHandler {
	return &ReservationHandler{service: service}
}

func (h *ReservationHandler) Register(router *gin.RouterGroup) {
	reservations := router.Group("/reservations")
	reservations.POST("", h.create)
	reservations.GET("/:id", h.get)
	reservations.GET("/pnr/:pnr", h.getByPNR)
	reservations.POST("/:id/cancel", h.cancel)
	reservations.POST("/:id/complete", h.complete)

	router.POST("/payments/callback", h.paymentCallback)
	router.PUT("/tickets/:id/seat", h.assignSeat)
}

func (h *ReservationHandler) create(c *gin.Context) {
	var req booking.CreateReservationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.service.CreateReservationWithTicketsAndPayment(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toReservationResponse(res))
}

func (h *ReservationHandler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.service.GetReservation(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(res))
}

func (h *ReservationHandler) getByPNR(c *gin.Context) {
	res, err := h.service.GetReservationByPNR(c.Request.Context(), c.Param("pnr"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(res))
}

func (h *ReservationHandler) cancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.service.CancelReservation(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(res))
}

func (h *ReservationHandler) complete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.service.CompleteReservation(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(res))
}

func (h *ReservationHandler) paymentCallback(c *gin.Context) {
	var cb booking.PaymentCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		badRequest(c, err.Error())
		return
	}
	if cb.PaymentID <= 0 {
		badRequest(c, "payment_id is required")
		return
	}
	res, err := h.service.CompletePayment(c.Request.Context(), cb)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(res))
}

type assignSeatRequest struct {
	SeatNumber string `json:"seat_number" binding:"required"`
}

func (h *ReservationHandler) assignSeat(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req assignSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	t, err := h.service.AssignSeat(c.Request.Context(), id, req.SeatNumber)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTicketResponse(t))
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}
