package consent_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"consent-go/internal/consent"
	"consent-go/internal/testutil"
)

// blockingReporter holds every report until release is closed.
type blockingReporter struct {
	release chan struct{}
	got     chan consent.Report
}

func (b *blockingReporter) Report(ctx context.Context, r consent.Report) error {
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	b.got <- r
	return nil
}

func TestGateway_FinalizeDoesNotBlock(t *testing.T) {
	rep := &blockingReporter{release: make(chan struct{}), got: make(chan consent.Report, 1)}
	queue := &testutil.RecordingQueue{}
	g := consent.NewGateway(consent.Settings{ConsentMode: true}, rep, queue, consent.NewBus(), consent.NewNopLogger())

	r := &consent.Record{Version: "3", Type: consent.TypePartial, Categories: map[string]bool{"necessary": true, "analytics": true, "ads": false}}
	g.Finalize(r)

	if len(queue.Commands) != 1 {
		t.Fatal("tag signal not updated while the report was in flight")
	}

	close(rep.release)
	g.Wait()

	select {
	case got := <-rep.got:
		want := consent.Report{
			Action:        consent.DefaultLogAction,
			Consent:       consent.TypePartial,
			Categories:    "analytics,necessary",
			ConfigVersion: "3",
		}
		if got != want {
			t.Errorf("report = %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("report never delivered")
	}
}

func TestGateway_ReportFailureIgnored(t *testing.T) {
	rep := &testutil.RecordingReporter{Err: errors.New("endpoint down")}
	bus := consent.NewBus()
	finalized := 0
	bus.Subscribe(consent.EventFinalized, func(consent.Event) { finalized++ })
	g := consent.NewGateway(consent.Settings{}, rep, nil, bus, consent.NewNopLogger())

	g.Finalize(&consent.Record{Version: "1", Type: consent.TypeNone, Categories: map[string]bool{}})
	g.Wait()

	if len(rep.Reports()) != 1 {
		t.Errorf("reports = %d, want 1 attempt", len(rep.Reports()))
	}
	if finalized != 1 {
		t.Errorf("finalized events = %d, want 1", finalized)
	}
}

func TestGateway_ConsentModeDisabled(t *testing.T) {
	queue := &testutil.RecordingQueue{}
	g := consent.NewGateway(consent.Settings{ConsentMode: false}, nil, queue, consent.NewBus(), consent.NewNopLogger())

	g.Finalize(&consent.Record{Version: "1", Categories: map[string]bool{"ads": true}})
	g.Sync(&consent.Record{Version: "1", Categories: map[string]bool{"ads": true}})
	g.Wait()

	if len(queue.Commands) != 0 {
		t.Errorf("tag commands = %d, want none with consent mode off", len(queue.Commands))
	}
}

func TestGateway_SyncNilRecord(t *testing.T) {
	queue := &testutil.RecordingQueue{}
	g := consent.NewGateway(consent.Settings{ConsentMode: true}, nil, queue, consent.NewBus(), consent.NewNopLogger())

	g.Sync(nil)

	if len(queue.Commands) != 0 {
		t.Error("Sync(nil) pushed a command")
	}
}

func TestGateway_Default(t *testing.T) {
	t.Run("pushes denied default", func(t *testing.T) {
		queue := &testutil.RecordingQueue{}
		g := consent.NewGateway(consent.Settings{ConsentMode: true}, nil, queue, consent.NewBus(), consent.NewNopLogger())

		g.Default()

		cmd, ok := queue.Last()
		if !ok || cmd.Command != "consent" || cmd.Action != "default" {
			t.Fatalf("tag command = %+v, want consent default", cmd)
		}
		if cmd.Signals[consent.SignalSecurityStorage] != consent.Granted {
			t.Errorf("security_storage = %q, want granted", cmd.Signals[consent.SignalSecurityStorage])
		}
		for _, sig := range []string{consent.SignalAdStorage, consent.SignalAnalyticsStorage, consent.SignalFunctionalityStorage} {
			if cmd.Signals[sig] != consent.Denied {
				t.Errorf("%s = %q, want denied", sig, cmd.Signals[sig])
			}
		}
	})

	t.Run("silent with consent mode off", func(t *testing.T) {
		queue := &testutil.RecordingQueue{}
		g := consent.NewGateway(consent.Settings{}, nil, queue, consent.NewBus(), consent.NewNopLogger())

		g.Default()

		if len(queue.Commands) != 0 {
			t.Errorf("tag commands = %d, want none", len(queue.Commands))
		}
	})
}
