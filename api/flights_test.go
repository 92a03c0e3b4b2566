package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFlightUseCase struct {
	mock.Mock
}

func (m *MockFlightUseCase) List(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

var departure = time.Date(2026, 11, 2, 8, 30, 0, 0, time.UTC)

func sampleFlight() domain.Flight {
	return domain.Flight{
		ID:             1,
		FlightNumber:   "PC1011",
		Airline:        "Pegasus",
		FromAirport:    "SAW",
		ToAirport:      "ESB",
		DepartureTime:  departure,
		ArrivalTime:    departure.Add(70 * time.Minute),
		BasePrice:      domain.NewMoney(100000, "TRY"),
		TotalSeats:     180,
		AvailableSeats: 42,
		Active:         true,
	}
}

func TestFlightHandler_list(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/flights", nil)

	mockService.On("List", c.Request.Context()).Return([]domain.Flight{sampleFlight()}, nil)

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var body []flightResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "PC1011", body[0].FlightNumber)
	assert.Equal(t, 42, body[0].AvailableSeats)
	assert.Equal(t, int64(100000), body[0].BasePrice.Amount)
	assert.Equal(t, "2026-11-02T08:30:00Z", body[0].DepartureTime)

	mockService.AssertExpectations(t)
}

func TestFlightHandler_list_Error(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/flights", nil)

	mockService.On("List", c.Request.Context()).Return(nil, domain.Unexpected("list flights", assert.AnError))

	handler.list(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestFlightHandler_get(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Request = httptest.NewRequest("GET", "/flights/1", nil)

	flight := sampleFlight()
	mockService.On("GetByID", c.Request.Context(), int64(1)).Return(&flight, nil)

	handler.get(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"from_airport":"SAW"`)

	mockService.AssertExpectations(t)
}

func TestFlightHandler_get_NotFound(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "7"}}
	c.Request = httptest.NewRequest("GET", "/flights/7", nil)

	mockService.On("GetByID", c.Request.Context(), int64(7)).Return(nil, domain.NotFound("flight", 7))

	handler.get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"not_found"`)
}

func TestFlightHandler_get_BadID(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	c.Request = httptest.NewRequest("GET", "/flights/abc", nil)

	handler.get(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}
