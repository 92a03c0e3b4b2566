// Package pricing computes ticket prices. Everything here is pure: same
// flight base price, seat class and baggage option always give the same
// result.
package pricing

import "github.com/Domenick1991/travelbooking/internal/domain"

// Multipliers are basis points of the flight base price.
var seatClassMultipliers = map[domain.SeatClass]int64{
	domain.SeatClassEconomy:        10000,
	domain.SeatClassPremiumEconomy: 15000,
	domain.SeatClassBusiness:       25000,
	domain.SeatClassFirst:          40000,
}

var baggageSurcharges = map[domain.BaggageOption]int64{
	domain.BaggageLight:    0,
	domain.BaggageStandard: 1500,
	domain.BaggageExtra:    3000,
}

// NormalizeSeatClass maps unknown classes to Economy.
func NormalizeSeatClass(c domain.SeatClass) domain.SeatClass {
	if _, ok := seatClassMultipliers[c]; ok {
		return c
	}
	return domain.SeatClassEconomy
}

// NormalizeBaggage maps unknown options to Light.
func NormalizeBaggage(b domain.BaggageOption) domain.BaggageOption {
	if _, ok := baggageSurcharges[b]; ok {
		return b
	}
	return domain.BaggageLight
}

// CalculateTicketPriceAndBaggage returns the ticket price and baggage fee in
// the flight's currency.
func CalculateTicketPriceAndBaggage(flight *domain.Flight, class domain.SeatClass, baggage domain.BaggageOption) (domain.Money, domain.Money) {
	base := flight.BasePrice
	price := base.MulBasisPoints(seatClassMultipliers[NormalizeSeatClass(class)])
	fee := base.MulBasisPoints(baggageSurcharges[NormalizeBaggage(baggage)])
	return price, fee
}
