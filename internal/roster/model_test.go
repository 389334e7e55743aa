package roster

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func TestPeriodStatusAt(t *testing.T) {
	today := date(2025, time.August, 15)
	const window = 60

	tests := []struct {
		name   string
		period AcquisitionPeriod
		want   PeriodStatus
	}{
		{
			name: "no entitled days wins over any deadline",
			period: AcquisitionPeriod{
				EntitledDays: decimal.Zero,
				MaxDeadline:  datePtr(2025, time.January, 1),
			},
			want: StatusNoEntitlement,
		},
		{
			name: "past the hard maximum",
			period: AcquisitionPeriod{
				EntitledDays: decimal.NewFromInt(30),
				MaxDeadline:  datePtr(2025, time.August, 14),
			},
			want: StatusUrgent,
		},
		{
			name: "on the hard maximum itself",
			period: AcquisitionPeriod{
				EntitledDays: decimal.NewFromInt(30),
				MaxDeadline:  datePtr(2025, time.August, 15),
			},
			want: StatusOK,
		},
		{
			name: "ideal deadline exactly at the window edge",
			period: AcquisitionPeriod{
				EntitledDays:  decimal.NewFromInt(30),
				IdealDeadline: datePtr(2025, time.October, 14),
			},
			want: StatusWarning,
		},
		{
			name: "ideal deadline one day beyond the window",
			period: AcquisitionPeriod{
				EntitledDays:  decimal.NewFromInt(30),
				IdealDeadline: datePtr(2025, time.October, 15),
			},
			want: StatusOK,
		},
		{
			name: "overdue ideal deadline still warns while the maximum holds",
			period: AcquisitionPeriod{
				EntitledDays:  decimal.NewFromInt(30),
				IdealDeadline: datePtr(2025, time.August, 1),
				MaxDeadline:   datePtr(2025, time.December, 31),
			},
			want: StatusWarning,
		},
		{
			name:   "no deadlines at all",
			period: AcquisitionPeriod{EntitledDays: decimal.NewFromInt(30)},
			want:   StatusOK,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.period.StatusAt(today, window))
		})
	}
}

func TestPeriodStatusLabels(t *testing.T) {
	require.Equal(t, "Urgente", StatusUrgent.Label())
	require.Equal(t, "Atenção", StatusWarning.Label())
	require.Equal(t, "Sem dias", StatusNoEntitlement.Label())
	require.Equal(t, "OK", StatusOK.Label())
	require.Equal(t, "-", PeriodStatus("whatever").Label())
}

func TestDaysUsedSkipsDatelessInstallments(t *testing.T) {
	ten := decimal.NewFromInt(10)
	half := decimal.NewFromFloat(7.5)
	used := DaysUsed([]Installment{
		{Days: &ten},
		{Days: nil},
		{Days: &half},
	})
	require.True(t, decimal.NewFromFloat(17.5).Equal(used))

	require.True(t, DaysUsed(nil).IsZero())
}

func TestMonthLabel(t *testing.T) {
	require.Equal(t, "Jan/2024", MonthLabel("2024-01"))
	require.Equal(t, "Jul/2025", MonthLabel("2025-07"))
	require.Equal(t, "Dez/2024", MonthLabel("2024-12"))
	// Unparseable input is passed through untouched.
	require.Equal(t, "2025-13", MonthLabel("2025-13"))
	require.Equal(t, "ago/25", MonthLabel("ago/25"))
}

func TestInstallmentJSONCarriesMonthDisplay(t *testing.T) {
	ten := decimal.NewFromInt(10)
	payload, err := json.Marshal(Installment{ID: 7, PeriodID: 3, Month: "2025-02", Days: &ten})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(payload, &got))
	require.Equal(t, "2025-02", got["month"])
	require.Equal(t, "Fev/2025", got["month_display"])
}
