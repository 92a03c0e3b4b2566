package flights

import (
	"context"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/repository"
	"go.uber.org/zap"
)

type FlightUseCase interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
}

// FlightCache is the read side of the flight cache. Misses are reported as
// nil values without error.
type FlightCache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
	GetFlight(ctx context.Context, id int64) (*domain.Flight, error)
	SetFlight(ctx context.Context, f *domain.Flight) error
}

type FlightService struct {
	repo   repository.FlightRepository
	cache  FlightCache
	logger *zap.Logger
}

func NewFlightService(repo repository.FlightRepository, cache FlightCache, logger *zap.Logger) *FlightService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlightService{repo: repo, cache: cache, logger: logger}
}

// List returns bookable flights. A cache failure falls through to the store.
func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		cached, err := s.cache.GetFlights(ctx)
		if err != nil {
			s.logger.Warn("flight cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	flights, err := s.repo.List(ctx)
	if err != nil {
		return nil, domain.Wrap("list flights", err)
	}
	if s.cache != nil {
		if err := s.cache.SetFlights(ctx, flights); err != nil {
			s.logger.Warn("flight cache write failed", zap.Error(err))
		}
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	if s.cache != nil {
		cached, err := s.cache.GetFlight(ctx, id)
		if err != nil {
			s.logger.Warn("flight cache read failed", zap.Int64("flight_id", id), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Wrap("get flight", err)
	}
	if s.cache != nil {
		if err := s.cache.SetFlight(ctx, f); err != nil {
			s.logger.Warn("flight cache write failed", zap.Int64("flight_id", id), zap.Error(err))
		}
	}
	return f, nil
}

var _ FlightUseCase = (*FlightService)(nil)
