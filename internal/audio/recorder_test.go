package audio

import (
	"math"
	"testing"
	"time"
)

func TestPhraseDetector_TimesOutWithoutSpeech(t *testing.T) {
	d := newPhraseDetector(0.1, 800*time.Millisecond, 100*time.Millisecond, 7*time.Second)

	var v frameVerdict
	frames := 0
	for v = d.feed(0.01); v == frameSkip; v = d.feed(0.01) {
		frames++
	}

	if v != waitTimedOut {
		t.Fatalf("verdict = %v", v)
	}
	if frames != 4 {
		t.Fatalf("timed out after %d silent frames, want 4", frames+1)
	}
}

func TestPhraseDetector_EndsOnPause(t *testing.T) {
	d := newPhraseDetector(0.1, 100*time.Millisecond, time.Second, 7*time.Second)

	if v := d.feed(0.01); v != frameSkip {
		t.Fatalf("leading silence verdict = %v", v)
	}
	for i := 0; i < 10; i++ {
		if v := d.feed(0.5); v != frameKeep {
			t.Fatalf("speech frame %d verdict = %v", i, v)
		}
	}
	for i := 0; i < 4; i++ {
		if v := d.feed(0.01); v != frameKeep {
			t.Fatalf("trailing frame %d verdict = %v", i, v)
		}
	}
	if v := d.feed(0.01); v != phraseDone {
		t.Fatalf("expected phrase to end after pause, got %v", v)
	}
}

func TestPhraseDetector_EnforcesPhraseLimit(t *testing.T) {
	d := newPhraseDetector(0.1, time.Second, time.Second, 200*time.Millisecond)

	n := 0
	for d.feed(0.5) != phraseDone {
		n++
		if n > 100 {
			t.Fatalf("phrase limit never reached")
		}
	}
	if n != 9 {
		t.Fatalf("phrase ended after %d frames, want 10", n+1)
	}
}

func TestCalibratedThreshold(t *testing.T) {
	if got := calibratedThreshold(0.015, 0.001); got != 0.015 {
		t.Fatalf("quiet room threshold = %v", got)
	}
	if got := calibratedThreshold(0.015, 0.1); math.Abs(got-0.15) > 1e-9 {
		t.Fatalf("noisy room threshold = %v", got)
	}
}

func TestFrameRMS(t *testing.T) {
	if got := frameRMS([]float32{0.5, -0.5, 0.5, -0.5}); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("rms = %v", got)
	}
	if frameRMS(nil) != 0 {
		t.Fatalf("rms of empty frame should be zero")
	}
}
