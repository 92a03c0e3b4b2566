package domain

import (
	"strings"
	"time"
)

type PassengerType string

const (
	PassengerTypeAdult  PassengerType = "ADULT"
	PassengerTypeChild  PassengerType = "CHILD"
	PassengerTypeInfant PassengerType = "INFANT"
)

type Passenger struct {
	ID             int64
	FirstName      string
	LastName       string
	NationalID     string
	PassportNumber string
	DateOfBirth    *time.Time
	Type           PassengerType
	DeletedAt      *time.Time
	CreatedAt      time.Time
}

func (p *Passenger) Validate() error {
	if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
		return Validation("passenger first and last name are required")
	}
	switch p.Type {
	case PassengerTypeAdult, PassengerTypeChild, PassengerTypeInfant:
	case "":
		p.Type = PassengerTypeAdult
	default:
		return Validation("unknown passenger type %q", p.Type)
	}
	if p.DateOfBirth != nil && p.DateOfBirth.After(time.Now()) {
		return Validation("passenger date of birth is in the future")
	}
	return nil
}
