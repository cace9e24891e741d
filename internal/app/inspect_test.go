package app

import (
	"net/url"
	"testing"

	"consent-go/internal/consent"
)

func TestInspect(t *testing.T) {
	settings := consent.Settings{Version: "2"}

	tests := []struct {
		name        string
		raw         string
		wantRecord  bool
		wantStale   bool
		wantOptOut  bool
		wantAdState string
	}{
		{
			name:        "current full record",
			raw:         url.QueryEscape(`{"version":"2","ts":1700000000000,"categories":{"necessary":true,"ads":true},"type":"full"}`),
			wantRecord:  true,
			wantAdState: consent.Granted,
		},
		{
			name:        "old version is stale",
			raw:         url.QueryEscape(`{"version":"1","ts":1700000000000,"categories":{"necessary":true},"type":"none"}`),
			wantRecord:  true,
			wantStale:   true,
			wantAdState: consent.Denied,
		},
		{
			name:        "legacy opt-out flag",
			raw:         url.QueryEscape(`{"version":"2","ts":1700000000000,"categories":{"ads":true},"type":"full","dns":true}`),
			wantRecord:  true,
			wantOptOut:  true,
			wantAdState: consent.Denied,
		},
		{name: "garbage", raw: "%%%not-json", wantStale: true},
		{name: "empty", raw: "", wantStale: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Inspect(settings, tt.raw)

			if (got.Record != nil) != tt.wantRecord {
				t.Fatalf("Record = %+v, want present=%v", got.Record, tt.wantRecord)
			}
			if got.Stale != tt.wantStale {
				t.Errorf("Stale = %v, want %v", got.Stale, tt.wantStale)
			}
			if got.OptedOutOfSale != tt.wantOptOut {
				t.Errorf("OptedOutOfSale = %v, want %v", got.OptedOutOfSale, tt.wantOptOut)
			}
			if tt.wantRecord && got.Signals[consent.SignalAdStorage] != tt.wantAdState {
				t.Errorf("ad_storage = %q, want %q", got.Signals[consent.SignalAdStorage], tt.wantAdState)
			}
		})
	}
}
