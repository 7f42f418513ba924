package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/invoicing_backend/models"
)

func TestDateString_UnmarshalRejectsBadFormats(t *testing.T) {
	var d models.DateString
	if err := json.Unmarshal([]byte(`"15-03-2026"`), &d); err == nil {
		t.Fatalf("expected error for non ISO date")
	}
	if err := json.Unmarshal([]byte(`20260315`), &d); err == nil {
		t.Fatalf("expected error for non string date")
	}
	if err := json.Unmarshal([]byte(`"2026-03-15"`), &d); err != nil {
		t.Fatalf("valid date rejected: %v", err)
	}
}

func TestDateString_DayBoundsWidenToUTC(t *testing.T) {
	// Yangon is UTC+6:30, so the local day 2026-03-15 starts at
	// 2026-03-14T17:30:00Z.
	start := models.DateString(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	if err := start.StartOfDayUTCTime("Asia/Yangon"); err != nil {
		t.Fatalf("StartOfDayUTCTime: %v", err)
	}
	expected := time.Date(2026, 3, 14, 17, 30, 0, 0, time.UTC)
	if !time.Time(start).Equal(expected) {
		t.Fatalf("start of day expected %s, got %s", expected, time.Time(start))
	}

	end := models.DateString(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	if err := end.EndOfDayUTCTime("Asia/Yangon"); err != nil {
		t.Fatalf("EndOfDayUTCTime: %v", err)
	}
	if got := time.Time(end); got.Before(expected.Add(23 * time.Hour)) {
		t.Fatalf("end of day should land near the next UTC boundary, got %s", got)
	}
}
