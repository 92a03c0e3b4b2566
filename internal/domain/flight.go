package domain

import "time"

type Flight struct {
	ID             int64
	FlightNumber   string
	Airline        string
	FromAirport    string
	ToAirport      string
	DepartureTime  time.Time
	ArrivalTime    time.Time
	BasePrice      Money
	TotalSeats     int
	AvailableSeats int
	Active         bool
	DeletedAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ReserveSeats takes n seats out of the inventory.
func (f *Flight) ReserveSeats(n int) error {
	if n <= 0 {
		return Validation("seat count must be positive, got %d", n)
	}
	if f.AvailableSeats < n {
		return InsufficientInventory(f.ID, n, f.AvailableSeats)
	}
	f.AvailableSeats -= n
	return nil
}

// ReleaseSeats returns n seats to the inventory. The counter never exceeds
// TotalSeats, so a double release cannot inflate capacity.
func (f *Flight) ReleaseSeats(n int) {
	if n <= 0 {
		return
	}
	f.AvailableSeats += n
	if f.AvailableSeats > f.TotalSeats {
		f.AvailableSeats = f.TotalSeats
	}
}

func (f *Flight) Deleted() bool { return f.DeletedAt != nil }

// Bookable reports whether tickets may be sold on the flight.
func (f *Flight) Bookable() bool { return f.Active && !f.Deleted() }
