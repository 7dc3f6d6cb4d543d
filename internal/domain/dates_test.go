package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddMonthsClamped(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		n    int
		want time.Time
	}{
		{
			name: "Plain month add keeps the day",
			in:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			n:    1,
			want: time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "Jan 31 plus one month clamps to Feb 29 in a leap year",
			in:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			n:    1,
			want: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "Jan 31 plus one month clamps to Feb 28 otherwise",
			in:   time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC),
			n:    1,
			want: time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "Clamp does not stick on later months",
			in:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			n:    2,
			want: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "Negative months go backwards",
			in:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
			n:    -1,
			want: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "Year boundary",
			in:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
			n:    2,
			want: time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddMonthsClamped(tt.in, tt.n))
		})
	}
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 29, DaysInMonth(2024, time.February))
	assert.Equal(t, 28, DaysInMonth(2023, time.February))
	assert.Equal(t, 31, DaysInMonth(2024, time.December))
	assert.Equal(t, 30, DaysInMonth(2024, time.April))
}

func TestMonthStart(t *testing.T) {
	in := time.Date(2024, 6, 15, 13, 45, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), MonthStart(in))
}

func TestSameMonth(t *testing.T) {
	assert.True(t, SameMonth(
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)))
	assert.False(t, SameMonth(
		time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, SameMonth(
		time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
}
