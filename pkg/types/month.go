package types

import (
	"time"
)

// Month identifies one UTC calendar month. Monthly availability is
// bucketed by Month; it serializes as "2006-01".
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month containing t, evaluated in UTC.
func MonthOf(t time.Time) Month {
	t = t.UTC()
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a "2006-01" label.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, err
	}
	return MonthOf(t), nil
}

func (m Month) String() string {
	return m.Start().Format("2006-01")
}

// Start returns the first instant of the month in UTC.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Add returns the month n calendar months after m (n may be negative).
func (m Month) Add(n int) Month {
	return MonthOf(m.Start().AddDate(0, n, 0))
}

// Next returns the month immediately after m.
func (m Month) Next() Month {
	return m.Add(1)
}

func (m Month) Before(o Month) bool {
	return m.Year < o.Year || (m.Year == o.Year && m.Month < o.Month)
}

func (m Month) After(o Month) bool {
	return o.Before(m)
}

func (m Month) IsZero() bool {
	return m == Month{}
}

func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
