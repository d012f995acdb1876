package job

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusDownloading, true},
		{StatusDownloading, StatusTranscribing, true},
		{StatusTranscribing, StatusCompleted, true},
		{StatusPending, StatusFailed, true},
		{StatusDownloading, StatusFailed, true},
		{StatusTranscribing, StatusFailed, true},
		{StatusPending, StatusTranscribing, false},
		{StatusPending, StatusCompleted, false},
		{StatusTranscribing, StatusDownloading, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusPending, false},
		{StatusCompleted, StatusCompleted, false},
		{StatusPending, Status("running"), false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusDownloading, StatusTranscribing} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	for _, s := range []Status{StatusCompleted, StatusFailed} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestKindValid(t *testing.T) {
	if !KindTranscribe.Valid() {
		t.Fatal("transcribe should be a valid kind")
	}
	if Kind("summarize").Valid() {
		t.Fatal("unknown kind should be invalid")
	}
}

func TestErrorDetailFor(t *testing.T) {
	if d := ErrorDetailFor(StatusCompleted, "ignored"); d != nil {
		t.Fatalf("expected nil detail for completed, got %q", *d)
	}
	if d := ErrorDetailFor(StatusFailed, ""); d == nil || *d != "unknown error" {
		t.Fatalf("expected fallback detail, got %v", d)
	}

	long := make([]rune, MaxErrorDetail+50)
	for i := range long {
		long[i] = 'é'
	}
	d := ErrorDetailFor(StatusFailed, string(long))
	if d == nil || len([]rune(*d)) != MaxErrorDetail {
		t.Fatalf("expected detail truncated to %d runes", MaxErrorDetail)
	}
}
