package logic

import (
	"errors"
	"fmt"
	"net/http"

	"perpstate/pkg/fixed"
	"perpstate/pkg/ledger"
	"perpstate/pkg/pricefeed"
	"perpstate/pkg/twap"
	"perpstate/pkg/vamm"
)

var (
	ErrBadRequest      = errors.New("bad request")
	ErrArchiveDisabled = errors.New("archive not configured")
)

// BadRequest tags err as a client error.
func BadRequest(err error) error {
	return fmt.Errorf("%w: %v", ErrBadRequest, err)
}

var statusTable = []struct {
	status int
	errs   []error
}{
	{http.StatusBadRequest, []error{
		ErrBadRequest,
		fixed.ErrInvalid,
		pricefeed.ErrInvalidKey,
		pricefeed.ErrBatchMismatch,
		twap.ErrInvalidInterval,
	}},
	{http.StatusNotFound, []error{
		ledger.ErrNotFound,
		twap.ErrNoPriceData,
		vamm.ErrNoSnapshot,
	}},
	{http.StatusConflict, []error{
		vamm.ErrStaleBlockHeight,
		vamm.ErrAlreadyInitialized,
	}},
	{http.StatusUnprocessableEntity, []error{
		pricefeed.ErrInsufficientHistory,
		twap.ErrIntervalTooLarge,
		fixed.ErrArithmetic,
	}},
	{http.StatusServiceUnavailable, []error{
		ErrArchiveDisabled,
	}},
}

// StatusOf maps a domain error to its HTTP status.
func StatusOf(err error) int {
	for _, row := range statusTable {
		for _, target := range row.errs {
			if errors.Is(err, target) {
				return row.status
			}
		}
	}
	return http.StatusInternalServerError
}
