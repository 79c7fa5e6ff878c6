package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestSpinnerNotShownImmediately(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(&buf, false)
	s.SetMessage("Loading model...")
	if s.IsShown() {
		t.Fatal("spinner visible before the show delay elapsed")
	}
	s.Finish()
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestSpinnerShownAfterDelay(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(&buf, false)
	time.Sleep(150 * time.Millisecond)
	s.SetMessage("Loading model...")
	if !s.IsShown() {
		t.Fatal("spinner not visible after the show delay")
	}
	time.Sleep(250 * time.Millisecond)
	s.Finish()
	if !strings.Contains(buf.String(), "Loading model...") {
		t.Fatalf("spinner output missing message, got %q", buf.String())
	}
}

func TestSpinnerQuietNeverShows(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(&buf, true)
	time.Sleep(150 * time.Millisecond)
	s.SetMessage("Loading model...")
	if s.IsShown() {
		t.Fatal("quiet spinner became visible")
	}
	s.FinishWithMessage("done")
	if buf.Len() != 0 {
		t.Fatalf("quiet spinner wrote output: %q", buf.String())
	}
}

func TestSpinnerShownSticksAfterFinish(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(&buf, false)
	time.Sleep(150 * time.Millisecond)
	s.SetMessage("working")
	s.Finish()
	if !s.IsShown() {
		t.Fatal("IsShown flipped back after Finish")
	}
}

func TestSpinnerMultipleMessages(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(&buf, false)
	time.Sleep(150 * time.Millisecond)
	s.SetMessage("first")
	time.Sleep(150 * time.Millisecond)
	s.SetMessage("second")
	time.Sleep(150 * time.Millisecond)
	s.Finish()
	if !strings.Contains(buf.String(), "second") {
		t.Fatalf("spinner never rendered updated message, got %q", buf.String())
	}
}

func TestFinishWithMessageOnlyWhenShown(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(&buf, false)
	s.FinishWithMessage("✓ Model ready")
	if strings.Contains(buf.String(), "Model ready") {
		t.Fatalf("final message printed for a spinner that never showed: %q", buf.String())
	}

	buf.Reset()
	s = newSpinner(&buf, false)
	time.Sleep(150 * time.Millisecond)
	s.SetMessage("downloading")
	s.FinishWithMessage("✓ Model ready")
	if !strings.Contains(buf.String(), "✓ Model ready") {
		t.Fatalf("final message missing for a shown spinner: %q", buf.String())
	}
}

func TestFinishIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(&buf, false)
	time.Sleep(150 * time.Millisecond)
	s.SetMessage("working")
	s.Finish()
	s.Finish()
	s.FinishWithMessage("late")
	if strings.Contains(buf.String(), "late") {
		t.Fatalf("message printed after spinner already finished: %q", buf.String())
	}
}

func TestDownloadProgressFormat(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(&buf, false)
	time.Sleep(150 * time.Millisecond)
	cb := DownloadProgress(s, "qwen3-correct-0.6B")
	cb(1<<20, 4<<20)
	time.Sleep(250 * time.Millisecond)
	s.Finish()
	out := buf.String()
	if !strings.Contains(out, "Downloading qwen3-correct-0.6B... 1.0/4.0 MB") {
		t.Fatalf("unexpected progress rendering: %q", out)
	}
}

func TestDownloadProgressUnknownTotal(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(&buf, false)
	time.Sleep(150 * time.Millisecond)
	cb := DownloadProgress(s, "m")
	cb(2<<20, 0)
	time.Sleep(250 * time.Millisecond)
	s.Finish()
	if !strings.Contains(buf.String(), "Downloading m... 2.0 MB") {
		t.Fatalf("unexpected progress rendering: %q", buf.String())
	}
}
