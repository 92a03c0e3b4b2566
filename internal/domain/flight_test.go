package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlight_ReserveSeats(t *testing.T) {
	f := &Flight{ID: 4, TotalSeats: 2, AvailableSeats: 2}

	require.NoError(t, f.ReserveSeats(1))
	require.NoError(t, f.ReserveSeats(1))
	assert.Equal(t, 0, f.AvailableSeats)

	err := f.ReserveSeats(1)
	assert.ErrorIs(t, err, ErrInsufficientInventory)
	assert.Equal(t, 0, f.AvailableSeats)

	assert.ErrorIs(t, f.ReserveSeats(0), ErrValidationFailed)
}

func TestFlight_ReleaseSeatsClampsAtTotal(t *testing.T) {
	f := &Flight{ID: 4, TotalSeats: 3, AvailableSeats: 2}

	f.ReleaseSeats(1)
	assert.Equal(t, 3, f.AvailableSeats)

	f.ReleaseSeats(5)
	assert.Equal(t, 3, f.AvailableSeats)

	f.ReleaseSeats(-1)
	assert.Equal(t, 3, f.AvailableSeats)
}

func TestFlight_Bookable(t *testing.T) {
	now := time.Now()
	assert.True(t, (&Flight{Active: true}).Bookable())
	assert.False(t, (&Flight{Active: false}).Bookable())
	assert.False(t, (&Flight{Active: true, DeletedAt: &now}).Bookable())
}

func TestError_KindMatching(t *testing.T) {
	err := NotFound("flight", 9).WithOp("create reservation")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidationFailed)
	assert.Equal(t, "create reservation: flight 9: not found", err.Error())

	fk := ForeignKeyViolation("ticket references missing reservation", errors.New("23503"))
	assert.ErrorIs(t, fk, ErrForeignKeyViolation)
	assert.ErrorIs(t, fk, ErrPersistenceConflict)
	assert.True(t, IsRetryable(fk))
	assert.False(t, IsRetryable(err))

	wrapped := Wrap("cancel reservation", errors.New("boom"))
	assert.ErrorIs(t, wrapped, ErrUnexpected)
	assert.Equal(t, ErrUnexpected, Kind(wrapped))
	assert.Equal(t, ErrNotFound, Kind(Wrap("op", err)))
	assert.Nil(t, Wrap("op", nil))
}

func TestMoney(t *testing.T) {
	a := NewMoney(150, "try")
	b, err := a.Add(NewMoney(250, "TRY"))
	require.NoError(t, err)
	assert.Equal(t, Money{Amount: 400, Currency: "TRY"}, b)

	_, err = a.Add(NewMoney(1, "EUR"))
	assert.ErrorIs(t, err, ErrValidationFailed)

	assert.Equal(t, "1000.00 TRY", NewMoney(100000, "TRY").String())
	assert.Equal(t, "-0.05 EUR", NewMoney(-5, "EUR").String())
	assert.True(t, ValidCurrency("USD"))
	assert.False(t, ValidCurrency("usd"))
}

func TestPNR(t *testing.T) {
	pnr, err := GeneratePNR()
	require.NoError(t, err)
	assert.Len(t, pnr, PNRLength)

	normalized, err := NormalizePNR(pnr)
	require.NoError(t, err)
	assert.Equal(t, pnr, normalized)

	got, err := NormalizePNR(" abcde12345 ")
	require.NoError(t, err)
	assert.Equal(t, "ABCDE12345", got)

	_, err = NormalizePNR("SHORT")
	assert.ErrorIs(t, err, ErrValidationFailed)
	_, err = NormalizePNR("ABCDE-1234")
	assert.ErrorIs(t, err, ErrValidationFailed)
}
