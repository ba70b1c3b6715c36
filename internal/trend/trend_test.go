package trend

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want Bucket
	}{
		{"far below strong fall", -0.5, StrongFall},
		{"just below -0.10", -0.1000001, StrongFall},
		{"-0.10 belongs to fall", -0.10, Fall},
		{"-0.06", -0.06, Fall},
		{"just below -0.05", -0.0500001, Fall},
		{"-0.05 belongs to slight fall", -0.05, SlightFall},
		{"-0.026", -0.026, SlightFall},
		{"-0.025 belongs to flat", -0.025, Flat},
		{"zero", 0, Flat},
		{"0.025 belongs to flat", 0.025, Flat},
		{"just above 0.025", 0.0250001, SlightRise},
		{"0.05 belongs to slight rise", 0.05, SlightRise},
		{"just above 0.05", 0.0500001, Rise},
		{"0.10 belongs to rise", 0.10, Rise},
		{"just above 0.10", 0.1000001, StrongRise},
		{"far above", 0.4, StrongRise},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.rate); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.rate, got, tt.want)
			}
		})
	}
}

func TestEstimate(t *testing.T) {
	t2 := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	t1 := t2.Add(5 * time.Minute)

	rate, bucket, err := Estimate(126, t1, 108, t2)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}

	// (126 - 108) / 18 / 5 = 0.2 mmol/L/min
	if math.Abs(rate-0.2) > 1e-9 {
		t.Errorf("rate = %v, want 0.2", rate)
	}
	if bucket != StrongRise {
		t.Errorf("bucket = %v, want strong rise", bucket)
	}
}

func TestEstimate_Falling(t *testing.T) {
	t2 := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	t1 := t2.Add(5 * time.Minute)

	rate, bucket, err := Estimate(100, t1, 103, t2)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	// -3 / 18 / 5 = -0.0333
	if bucket != SlightFall {
		t.Errorf("bucket = %v (rate %v), want slight fall", bucket, rate)
	}
}

func TestEstimate_NoElapsedTime(t *testing.T) {
	now := time.Now()

	_, bucket, err := Estimate(100, now, 90, now)
	if !errors.Is(err, ErrNoElapsedTime) {
		t.Errorf("error = %v, want ErrNoElapsedTime", err)
	}
	if bucket != Unknown {
		t.Errorf("bucket = %v, want unknown", bucket)
	}
}

func TestBucket_LabelsAndArrows(t *testing.T) {
	tests := []struct {
		bucket Bucket
		label  string
		arrow  string
	}{
		{StrongFall, "strong fall", "⇊"},
		{Fall, "fall", "↓"},
		{SlightFall, "slight fall", "↘"},
		{Flat, "flat", "→"},
		{SlightRise, "slight rise", "↗"},
		{Rise, "rise", "↑"},
		{StrongRise, "strong rise", "⇈"},
		{Unknown, "unknown", "-"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := tt.bucket.String(); got != tt.label {
				t.Errorf("String() = %q, want %q", got, tt.label)
			}
			if got := tt.bucket.Arrow(); got != tt.arrow {
				t.Errorf("Arrow() = %q, want %q", got, tt.arrow)
			}
		})
	}
}

func TestBucket_Angle(t *testing.T) {
	if _, ok := Unknown.Angle(); ok {
		t.Error("Unknown should not draw an arrow")
	}
	if a, _ := Flat.Angle(); a != 90 {
		t.Errorf("Flat angle = %v, want 90", a)
	}
	if !StrongFall.IsDouble() || Fall.IsDouble() {
		t.Error("only strong buckets are double arrows")
	}
}
