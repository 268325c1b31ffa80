package logic

import (
	"perpstate/internal/types"
	"perpstate/pkg/fixed"
	"perpstate/pkg/pricefeed"
	"perpstate/pkg/vamm"
)

// RoundResp renders obs at the given scale.
func RoundResp(key string, obs pricefeed.Observation, decimals int32) *types.RoundResp {
	return &types.RoundResp{
		Key:       key,
		RoundId:   obs.Round,
		Price:     obs.Price.Format(decimals),
		Timestamp: obs.Timestamp,
	}
}

// SnapshotResp renders snap and its spot price at the given scale.
func SnapshotResp(counter uint64, snap vamm.ReserveSnapshot, unit fixed.Amount, decimals int32) *types.SnapshotResp {
	resp := &types.SnapshotResp{
		Counter:           counter,
		QuoteAssetReserve: snap.QuoteAssetReserve.Format(decimals),
		BaseAssetReserve:  snap.BaseAssetReserve.Format(decimals),
		Timestamp:         snap.Timestamp,
		BlockHeight:       snap.BlockHeight,
	}
	if spot, err := snap.SpotPrice(unit); err == nil {
		resp.SpotPrice = spot.Format(decimals)
	}
	return resp
}

// TimestampOr returns *ts, or fallback when the field was omitted.
func TimestampOr(ts *uint64, fallback uint64) uint64 {
	if ts == nil {
		return fallback
	}
	return *ts
}
