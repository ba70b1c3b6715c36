package tray

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/mrcode/control-tray/internal/models"
	"github.com/mrcode/control-tray/internal/trend"
)

func liveStatus(value float64, status string) *models.GlucoseStatus {
	return &models.GlucoseStatus{
		Value:  value,
		Trend:  "→",
		Time:   time.Now(),
		Status: status,
	}
}

func TestSparkline(t *testing.T) {
	values := []float64{5.5, 6.1, 6.6, 7.2, 7.7, 8.3, 7.7, 7.2, 6.6, 6.1, 5.5}

	chart := sparkline(values, 6)
	lines := strings.Split(chart, "\n")
	if len(lines) != 6 {
		t.Fatalf("sparkline() has %d rows, want 6", len(lines))
	}
	for i, line := range lines {
		if n := utf8.RuneCountInString(line); n != len(values) {
			t.Errorf("row %d has %d columns, want %d", i, n, len(values))
		}
	}

	// The peak column is full from top to bottom.
	peak := 5
	for i, line := range lines {
		if r := []rune(line)[peak]; r != '⣿' {
			t.Errorf("row %d peak = %q, want full block", i, r)
		}
	}

	// The lowest column only shows the bottom step.
	bottom := []rune(lines[len(lines)-1])[0]
	if bottom != '⣀' {
		t.Errorf("lowest column bottom = %q, want '⣀'", bottom)
	}
	if top := []rune(lines[0])[0]; top != '⠀' {
		t.Errorf("lowest column top = %q, want empty", top)
	}
}

func TestSparkline_TooShort(t *testing.T) {
	if got := sparkline([]float64{5.5}, 2); got != "" {
		t.Errorf("sparkline() = %q, want empty for one value", got)
	}
}

func TestSparkline_Flat(t *testing.T) {
	chart := sparkline([]float64{6, 6, 6}, 2)
	if chart == "" {
		t.Fatal("sparkline() empty for flat series")
	}
}

func TestIconGenerator_SetHistoryKeepsNewest(t *testing.T) {
	g := NewIconGenerator()
	values := make([]float64, HistorySize+6)
	for i := range values {
		values[i] = float64(i)
	}

	g.SetHistory(values)

	if len(g.history) != HistorySize {
		t.Fatalf("history length = %d, want %d", len(g.history), HistorySize)
	}
	if g.history[0] != 6 {
		t.Errorf("oldest kept = %v, want 6", g.history[0])
	}

	g.ClearHistory()
	if len(g.history) != 0 {
		t.Errorf("history length after clear = %d", len(g.history))
	}
}

func TestStatusColor(t *testing.T) {
	stale := liveStatus(5, models.StatusNormal)
	stale.IsStale = true

	tests := []struct {
		name   string
		status *models.GlucoseStatus
		want   string
	}{
		{"nil", nil, colorUnknown},
		{"no reading", &models.GlucoseStatus{}, colorUnknown},
		{"stale", stale, colorStale},
		{"urgent low", liveStatus(2.8, models.StatusUrgentLow), colorUrgent},
		{"urgent high", liveStatus(15, models.StatusUrgentHigh), colorUrgent},
		{"low", liveStatus(3.6, models.StatusLow), colorLow},
		{"high", liveStatus(11, models.StatusHigh), colorHigh},
		{"in range", liveStatus(6, models.StatusNormal), colorInRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusColor(tt.status); got != tt.want {
				t.Errorf("StatusColor() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	if got := Label(liveStatus(6.4, models.StatusNormal)); got != "6.4 →" {
		t.Errorf("Label() = %q", got)
	}
	if got := Label(nil); got != "---" {
		t.Errorf("Label(nil) = %q, want ---", got)
	}
	if got := Label(&models.GlucoseStatus{Error: "boom"}); got != "ERR" {
		t.Errorf("Label(error) = %q, want ERR", got)
	}
}

func TestGenerateIcon_PNG(t *testing.T) {
	g := NewIconGenerator()
	g.goos = "linux"

	buckets := []trend.Bucket{trend.Unknown, trend.StrongFall, trend.SlightFall, trend.Flat, trend.Rise, trend.StrongRise}
	for _, b := range buckets {
		data := g.GenerateIcon(liveStatus(6.4, models.StatusNormal), b)
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("GenerateIcon(%v) not a PNG: %v", b, err)
		}
		if img.Bounds().Dx() != iconSize || img.Bounds().Dy() != iconSize {
			t.Errorf("icon size = %v, want %dx%d", img.Bounds(), iconSize, iconSize)
		}
	}
}

func TestGenerateIcon_ICO(t *testing.T) {
	g := NewIconGenerator()
	g.goos = osWindows

	data := g.GenerateIcon(liveStatus(12.1, models.StatusHigh), trend.Rise)
	if len(data) < 22 {
		t.Fatalf("ICO too short: %d bytes", len(data))
	}
	if typ := binary.LittleEndian.Uint16(data[2:4]); typ != 1 {
		t.Errorf("ICO type = %d, want 1", typ)
	}
	if data[6] != iconSize {
		t.Errorf("ICO width = %d, want %d", data[6], iconSize)
	}
	if size := binary.LittleEndian.Uint32(data[14:18]); int(size) != len(data)-22 {
		t.Errorf("ICO data size = %d, want %d", size, len(data)-22)
	}
	if _, err := png.Decode(bytes.NewReader(data[22:])); err != nil {
		t.Errorf("embedded image is not a PNG: %v", err)
	}
}

func TestTooltip(t *testing.T) {
	g := NewIconGenerator()
	g.goos = "linux"
	g.SetHistory([]float64{5, 6, 7, 8})

	status := liveStatus(8.0, models.StatusNormal)
	status.StaleMinutes = 3
	tip := g.Tooltip(status)

	for _, want := range []string{"8.0 mmol/L →", "Status: In Range", "3 minutes ago", "⣿"} {
		if !strings.Contains(tip, want) {
			t.Errorf("Tooltip() = %q, want to contain %q", tip, want)
		}
	}
}

func TestTooltip_WindowsFitsLimit(t *testing.T) {
	g := NewIconGenerator()
	g.goos = osWindows
	values := make([]float64, HistorySize)
	for i := range values {
		values[i] = 4 + float64(i%6)
	}
	g.SetHistory(values)

	status := liveStatus(9.1, models.StatusUrgentHigh)
	status.StaleMinutes = 125
	status.IsStale = true
	tip := g.Tooltip(status)

	if n := len([]rune(tip)); n > 128 {
		t.Errorf("Windows tooltip has %d characters, want <= 128", n)
	}
	if !strings.Contains(tip, "2h") {
		t.Errorf("Tooltip() = %q, want compact duration", tip)
	}
}

func TestTooltip_Error(t *testing.T) {
	g := NewIconGenerator()
	tip := g.Tooltip(&models.GlucoseStatus{Error: "login failed"})
	if tip != "Error: login failed" {
		t.Errorf("Tooltip() = %q", tip)
	}
}
