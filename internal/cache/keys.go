package cache

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"perpstate/internal/config"
)

// Namespace is the Redis key prefix for the perpstate application.
const Namespace = "perpstate"

// TTLClass represents a config-driven TTL bucket.
type TTLClass string

const (
	TTLShort  TTLClass = "short"
	TTLMedium TTLClass = "medium"
	TTLLong   TTLClass = "long"
)

// TTLSet normalises cache TTLs from config into time.Duration values.
type TTLSet struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// NewTTLSet converts config TTLs (in seconds) into durations.
func NewTTLSet(cfg config.CacheTTL) TTLSet {
	return TTLSet{
		Short:  durationOrDefault(cfg.Short, 10*time.Second),
		Medium: durationOrDefault(cfg.Medium, time.Minute),
		Long:   durationOrDefault(cfg.Long, 5*time.Minute),
	}
}

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds < 0 {
		return 0
	}
	if seconds == 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Duration returns the configured duration for the given TTL class.
func (t TTLSet) Duration(class TTLClass) time.Duration {
	switch class {
	case TTLShort:
		return t.Short
	case TTLMedium:
		return t.Medium
	case TTLLong:
		return t.Long
	default:
		return 0
	}
}

// Scaled applies a multiplier to a TTL class.
func (t TTLSet) Scaled(class TTLClass, factor float64) time.Duration {
	base := t.Duration(class)
	if base <= 0 || factor <= 0 {
		return base
	}
	return time.Duration(float64(base) * factor)
}

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

func windowPart(window time.Duration) string {
	return strconv.FormatInt(int64(window/time.Second), 10) + "s"
}

// --- Price Feed Keys --------------------------------------------------------

// PriceLatestKey caches the newest round of a feed.
func PriceLatestKey(feed string) string {
	return formatKey("price", "latest", feed)
}

// PriceRoundKey caches an individual round; rounds never change once written.
func PriceRoundKey(feed string, round uint64) string {
	return formatKey("price", "round", feed, strconv.FormatUint(round, 10))
}

// PriceTWAPKey holds the TWAP published by the refresher for one window.
func PriceTWAPKey(feed string, window time.Duration) string {
	return formatKey("twap", feed, windowPart(window))
}

// --- Reserve Snapshot Keys --------------------------------------------------

// ReserveCurrentKey caches the snapshot at the current counter.
func ReserveCurrentKey() string {
	return formatKey("reserve", "current")
}

// ReserveSnapshotKey caches the snapshot stored at counter n.
func ReserveSnapshotKey(n uint64) string {
	return formatKey("reserve", "snapshot", strconv.FormatUint(n, 10))
}

// ReserveTWAPKey holds the spot-price TWAP published for one window.
func ReserveTWAPKey(window time.Duration) string {
	return formatKey("twap", "reserve", windowPart(window))
}

// RefreshLockKey guards a refresher run across replicas.
func RefreshLockKey() string {
	return formatKey("lock", "twap_refresh")
}

// --- TTL Helpers ------------------------------------------------------------

// PriceTTL returns the TTL for the latest price.
func PriceTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLShort)
}

// PriceRoundTTL returns the TTL for immutable rounds.
func PriceRoundTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLLong)
}

// TWAPTTL outlives one refresh tick so readers never see a gap.
func TWAPTTL(ttl TTLSet) time.Duration {
	return ttl.Scaled(TTLMedium, 2)
}

// ReserveTTL returns the TTL for the current snapshot.
func ReserveTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLShort)
}

// RefreshLockTTL returns the TTL for the refresher lock.
func RefreshLockTTL(ttl TTLSet) time.Duration {
	return ttl.Scaled(TTLMedium, 0.5)
}

// FormatCacheKey is exported for dynamic key construction when patterns
// are not covered by helpers.
func FormatCacheKey(parts ...string) string {
	return formatKey(parts...)
}

// BuildKeyWithSuffix appends an arbitrary suffix to an existing key.
func BuildKeyWithSuffix(baseKey, suffix string) string {
	if strings.TrimSpace(suffix) == "" {
		return baseKey
	}
	return fmt.Sprintf("%s:%s", baseKey, strings.TrimSpace(suffix))
}
