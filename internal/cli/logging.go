package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"perpstate/internal/config"
	"perpstate/pkg/confkit"
)

// ConfigSummaryLines returns human readable lines describing the loaded app config.
func ConfigSummaryLines(cfg *config.Config) []string {
	if cfg == nil {
		return []string{"Configuration: <nil>"}
	}

	ledgerLine := fmt.Sprintf("Ledger: %s", cfg.Ledger.Backend)
	if strings.TrimSpace(cfg.Ledger.Path) != "" {
		ledgerLine = fmt.Sprintf("%s (%s)", ledgerLine, cfg.Ledger.Path)
	}
	cacheLine := "Cache: in-process"
	if cfg.CacheEnabled() {
		cacheLine = "Cache: redis"
	}

	lines := []string{
		fmt.Sprintf("Environment: %s", cfg.Env),
		ledgerLine,
		fmt.Sprintf("Postgres: %s", presence(cfg.MirrorEnabled())),
		fmt.Sprintf("Redis: %s", presence(cfg.CacheEnabled())),
		cacheLine,
		fmt.Sprintf("TTL (short/medium/long): %ds / %ds / %ds", cfg.TTL.Short, cfg.TTL.Medium, cfg.TTL.Long),
		sectionLine("Oracle config", cfg.Oracle),
	}

	oracleCfg := cfg.OracleConfig()
	keys := make([]string, 0, len(oracleCfg.Feeds))
	for _, feed := range oracleCfg.Feeds {
		keys = append(keys, fmt.Sprintf("%s%s", feed.Key, intervalsSuffix(feed.TWAPIntervals)))
	}
	lines = append(lines,
		fmt.Sprintf("Decimals: %d", oracleCfg.Decimals),
		fmt.Sprintf("Feeds: %s", joinOrNone(keys)),
		fmt.Sprintf("Reserve TWAP windows: %s", joinOrNone(durations(oracleCfg.Reserves.TWAPIntervals))),
		fmt.Sprintf("Refresh schedule: %s", oracleCfg.Refresh.Schedule),
		fmt.Sprintf("Journal: %s", presence(oracleCfg.Journal.Path != "")),
	)
	return lines
}

// LogConfigSummary emits the configuration summary using logx.
func LogConfigSummary(cfg *config.Config) {
	lines := ConfigSummaryLines(cfg)
	if len(lines) == 0 {
		return
	}
	logx.Info("configuration summary")
	for _, line := range lines {
		logx.Infof("config • %s", line)
	}
}

func presence(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func sectionLine[T any](name string, section confkit.Section[T]) string {
	switch {
	case strings.TrimSpace(section.File) != "":
		return fmt.Sprintf("%s: %s", name, section.File)
	case section.Value != nil:
		return fmt.Sprintf("%s: inline", name)
	default:
		return fmt.Sprintf("%s: not configured", name)
	}
}

func intervalsSuffix(intervals []time.Duration) string {
	if len(intervals) == 0 {
		return ""
	}
	return "[" + strings.Join(durations(intervals), ",") + "]"
}

func durations(values []time.Duration) []string {
	out := make([]string, 0, len(values))
	for _, d := range values {
		out = append(out, d.String())
	}
	return out
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}
