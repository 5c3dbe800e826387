package schauspielhaus

import (
	"strings"
	"testing"
	"time"
)

func TestParseDTStart(t *testing.T) {
	zurich, err := time.LoadLocation("Europe/Zurich")
	if err != nil {
		t.Fatal(err)
	}
	fixed := time.FixedZone("UTC+02:00", 2*3600)

	tests := []struct {
		name    string
		value   string
		loc     *time.Location
		want    time.Time
		wantErr bool
	}{
		{name: "summer", value: "20240710T200000", loc: zurich, want: time.Date(2024, 7, 10, 18, 0, 0, 0, time.UTC)},
		{name: "winter", value: "20240110T200000", loc: zurich, want: time.Date(2024, 1, 10, 19, 0, 0, 0, time.UTC)},
		{name: "legacy fixed offset in winter", value: "20240110T200000", loc: fixed, want: time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC)},
		{name: "utc suffix", value: "20240110T200000Z", loc: zurich, want: time.Date(2024, 1, 10, 20, 0, 0, 0, time.UTC)},
		{name: "date only", value: "20240110", loc: zurich, want: time.Date(2024, 1, 9, 23, 0, 0, 0, time.UTC)},
		{name: "garbage", value: "2024-01-10 20:00", loc: zurich, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDTStart(tt.value, tt.loc)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got.UTC(), tt.want)
			}
		})
	}
}

func TestParseCalendarRequiresUIDAndStart(t *testing.T) {
	if _, err := parseCalendar(ics("", "20240110T200000", "x", ""), time.UTC); err == nil || !strings.Contains(err.Error(), "UID") {
		t.Errorf("missing UID: err = %v", err)
	}
	if _, err := parseCalendar(ics("u1", "", "x", ""), time.UTC); err == nil || !strings.Contains(err.Error(), "DTSTART") {
		t.Errorf("missing DTSTART: err = %v", err)
	}
	ev, err := parseCalendar(ics("u1", "20240110T200000", `Hamlet\; Teil 1`, ""), time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if ev.UID != "u1" || ev.Summary != "Hamlet; Teil 1" {
		t.Errorf("event = %+v", ev)
	}
}

func TestParseCalendarHonoursTZID(t *testing.T) {
	body := strings.Join([]string{
		"BEGIN:VCALENDAR", "VERSION:2.0", "BEGIN:VEVENT",
		"UID:tz-1",
		"DTSTART;TZID=America/New_York:20240710T200000",
		"END:VEVENT", "END:VCALENDAR", "",
	}, "\r\n")
	ev, err := parseCalendar(body, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, 7, 11, 0, 0, 0, 0, time.UTC); !ev.Start.Equal(want) {
		t.Errorf("start = %v, want %v", ev.Start.UTC(), want)
	}
}
