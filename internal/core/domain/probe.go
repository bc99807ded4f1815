package domain

import (
	"fmt"
	"time"
)

// NoProviderConfiguredMessage is returned by a probe of a cooperative without a binding.
const NoProviderConfiguredMessage = "no provider configured"

// ProbeResult is the outcome of a connectivity probe.
type ProbeResult struct {
	Connected bool                   `json:"connected"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Status    ConnectivityStatus     `json:"status,omitempty"`
	CheckedAt *time.Time             `json:"checked_at,omitempty"`
}

// StatisticsPeriod is the reporting window requested by a caller. Counters
// are lifetime values; the period is validated and echoed.
type StatisticsPeriod string

const (
	PeriodDay   StatisticsPeriod = "day"
	PeriodWeek  StatisticsPeriod = "week"
	PeriodMonth StatisticsPeriod = "month"
	PeriodAll   StatisticsPeriod = "all"
)

// ParsePeriod validates a period; empty defaults to all.
func ParsePeriod(s string) (StatisticsPeriod, error) {
	switch StatisticsPeriod(s) {
	case "":
		return PeriodAll, nil
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodAll:
		return StatisticsPeriod(s), nil
	}
	return "", fmt.Errorf("invalid period %q: must be one of day, week, month, all", s)
}

// StatisticsFilter narrows a statistics summary.
type StatisticsFilter struct {
	Period StatisticsPeriod
}

// Statistics is the usage rollup of a binding.
type Statistics struct {
	TotalTransactions    int64              `json:"total_transactions"`
	TotalAmountProcessed int64              `json:"total_amount_processed"`
	AverageAmount        float64            `json:"average_amount"`
	LastTransaction      *time.Time         `json:"last_transaction,omitempty"`
	ConnectivityStatus   ConnectivityStatus `json:"connectivity_status"`
	IntegratedAt         *time.Time         `json:"integrated_at,omitempty"`
	ProviderCode         string             `json:"provider_code,omitempty"`
	Period               StatisticsPeriod   `json:"period"`
}

// EmptyStatistics is the zeroed aggregate for a cooperative without a binding.
func EmptyStatistics(period StatisticsPeriod) *Statistics {
	return &Statistics{
		ConnectivityStatus: ConnectivityUnverified,
		Period:             period,
	}
}
