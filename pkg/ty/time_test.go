// SPDX-License-Identifier: GPL-3.0-only
package ty

import (
	"errors"
	"testing"
	"time"
)

func TestParseStart(t *testing.T) {
	loc := time.FixedZone("test", 2*3600)
	now := time.Date(2024, 6, 24, 15, 30, 0, 0, loc)

	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "duration", input: "1h30m", want: now.Add(-90 * time.Minute)},
		{name: "seconds", input: "45s", want: now.Add(-45 * time.Second)},
		{name: "rfc3339", input: "2024-06-24T10:00:00Z", want: time.Date(2024, 6, 24, 10, 0, 0, 0, time.UTC)},
		{name: "date", input: "2024-06-20", want: time.Date(2024, 6, 20, 0, 0, 0, 0, loc)},
		{name: "date time", input: "2024-06-20 08:15", want: time.Date(2024, 6, 20, 8, 15, 0, 0, loc)},
		{name: "time of day", input: "09:05", want: time.Date(2024, 6, 24, 9, 5, 0, 0, loc)},
		{name: "negative duration", input: "-5m", wantErr: true},
		{name: "garbage", input: "yesterday", wantErr: true},
		{name: "empty", input: " ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStart(tt.input, now)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseStart(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStart(%q) unexpected error: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseStart(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSecondsSince(t *testing.T) {
	now := time.Date(2024, 6, 24, 15, 30, 0, 500, time.UTC)

	got, err := SecondsSince(StartOfDay(now), now)
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(15*3600 + 30*60 + 1); got != want {
		t.Errorf("SecondsSince(start of day) = %d, want %d", got, want)
	}

	if _, err := SecondsSince(now.Add(24*time.Hour), now); !errors.Is(err, ErrInFuture) {
		t.Errorf("SecondsSince(tomorrow) error = %v, want ErrInFuture", err)
	}
}
