package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestPriorTradingDaySkipsWeekend(t *testing.T) {
	mon := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	got := PriorTradingDay(mon)
	if got.Weekday() != time.Friday || got.Day() != 30 {
		t.Fatalf("unexpected prior day %v", got)
	}

	wed := time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)
	if PriorTradingDay(wed).Day() != 3 {
		t.Fatalf("expected tuesday")
	}
}

func TestAt(t *testing.T) {
	d := time.Date(2025, 6, 2, 12, 34, 56, 0, time.UTC)
	got := At(d, 9, 30)
	if got.Hour() != 9 || got.Minute() != 30 || got.Second() != 0 || got.Day() != 2 {
		t.Fatalf("unexpected time %v", got)
	}
}