package oracle

import (
	"fmt"

	"perpstate/pkg/fixed"
	"perpstate/pkg/pricefeed"
	"perpstate/pkg/vamm"
)

// Price returns the latest round of key, or pricefeed.ErrNotFound when the
// key has no history.
func (s *Service) Price(key string) (pricefeed.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obs, ok, err := s.prices.Latest(key)
	if err != nil {
		return pricefeed.Observation{}, err
	}
	if !ok {
		return pricefeed.Observation{}, fmt.Errorf("%w: no prices for %s", pricefeed.ErrNotFound, key)
	}
	return obs, nil
}

// PreviousPrice returns the round roundsBack before the latest.
func (s *Service) PreviousPrice(key string, roundsBack uint64) (pricefeed.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prices.NthFromLatest(key, roundsBack)
}

// Round returns a single round by id.
func (s *Service) Round(key string, id uint64) (pricefeed.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prices.Round(key, id)
}

// Rounds returns the number of rounds recorded for key.
func (s *Service) Rounds(key string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prices.Rounds(key)
}

// Feeds lists every key with history.
func (s *Service) Feeds() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prices.Keys()
}

// TWAP is the time-weighted price of key over [now-interval, now].
func (s *Service) TWAP(key string, interval, now uint64) (fixed.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prices.TWAP(key, interval, now)
}

// CurrentSnapshot returns the snapshot at the current counter.
func (s *Service) CurrentSnapshot() (vamm.ReserveSnapshot, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots.Latest()
}

// Snapshot returns the snapshot stored at counter n.
func (s *Service) Snapshot(n uint64) (vamm.ReserveSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots.ReadSnapshot(n)
}

// SpotPrice is the current reserve ratio at the configured scale.
func (s *Service) SpotPrice() (fixed.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, _, err := s.snapshots.Latest()
	if err != nil {
		return fixed.Amount{}, err
	}
	return snap.SpotPrice(s.unit)
}

// ReserveTWAP is the time-weighted spot price over [now-interval, now].
func (s *Service) ReserveTWAP(interval, now uint64) (fixed.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots.TWAP(s.unit, interval, now)
}
