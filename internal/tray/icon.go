// Package tray renders the system tray icon and tooltip
package tray

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"runtime"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/mrcode/control-tray/internal/models"
	"github.com/mrcode/control-tray/internal/trend"
)

const (
	osWindows = "windows"

	// HistorySize is how many recent values the tooltip sparkline shows
	HistorySize = 24

	iconSize   = 64
	iconRadius = 16
)

// Status colors
const (
	colorUnknown = "#808080"
	colorStale   = "#9ca3af"
	colorUrgent  = "#ef4444"
	colorLow     = "#f97316"
	colorHigh    = "#facc15"
	colorInRange = "#4ade80"
)

// brailleLevels fill one text cell from empty to full in quarter steps
var brailleLevels = []rune{'⠀', '⣀', '⣤', '⣶', '⣿'}

// IconGenerator draws tray icons and keeps the values for the sparkline
type IconGenerator struct {
	mu      sync.Mutex
	history []float64
	face    *truetype.Font
	goos    string
}

// NewIconGenerator creates an icon generator for the running platform
func NewIconGenerator() *IconGenerator {
	font, _ := truetype.Parse(goregular.TTF)
	return &IconGenerator{
		history: make([]float64, 0, HistorySize),
		face:    font,
		goos:    runtime.GOOS,
	}
}

// SetHistory replaces the sparkline values, keeping the newest HistorySize
func (g *IconGenerator) SetHistory(values []float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(values) > HistorySize {
		values = values[len(values)-HistorySize:]
	}
	g.history = append(g.history[:0], values...)
}

// ClearHistory drops all sparkline values
func (g *IconGenerator) ClearHistory() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history = g.history[:0]
}

// Label returns the text shown next to the icon
func Label(status *models.GlucoseStatus) string {
	if status == nil || !status.HasValue() {
		if status != nil && status.Error != "" {
			return "ERR"
		}
		return "---"
	}
	return fmt.Sprintf("%.1f %s", status.Value, status.Trend)
}

// GenerateIcon draws the value and trend arrow on a status-colored tile.
// It returns ICO data on Windows and PNG elsewhere.
func (g *IconGenerator) GenerateIcon(status *models.GlucoseStatus, bucket trend.Bucket) []byte {
	text := "---"
	if status != nil && status.HasValue() {
		text = fmt.Sprintf("%.1f", status.Value)
	} else if status != nil && status.Error != "" {
		text = "ERR"
	}

	dc := gg.NewContext(iconSize, iconSize)
	dc.SetRGBA(0, 0, 0, 0)
	dc.Clear()

	r, gr, b := parseHexColor(StatusColor(status))
	dc.SetRGB255(int(r), int(gr), int(b))
	dc.DrawRoundedRectangle(0, 0, iconSize, iconSize, iconRadius)
	dc.Fill()

	brightness := (int(r)*299 + int(gr)*587 + int(b)*114) / 1000
	if brightness > 128 {
		dc.SetColor(color.Black)
	} else {
		dc.SetColor(color.White)
	}

	if g.face != nil {
		dc.SetFontFace(truetype.NewFace(g.face, &truetype.Options{Size: 30}))
		dc.DrawStringAnchored(text, iconSize/2, iconSize/2-12, 0.5, 0.5)
	}

	drawArrow(dc, iconSize/2, iconSize-16, 24, bucket)

	if g.goos == osWindows {
		return imageToICO(dc.Image())
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil
	}
	return buf.Bytes()
}

// drawArrow draws the trend arrow rotated for bucket; Unknown draws nothing
func drawArrow(dc *gg.Context, x, y, size float64, bucket trend.Bucket) {
	angle, ok := bucket.Angle()
	if !ok {
		return
	}

	dc.Push()
	defer dc.Pop()

	dc.Translate(x, y)
	dc.Rotate(gg.Radians(angle))

	if bucket.IsDouble() {
		drawSingleArrow(dc, -size/4, size*0.8)
		drawSingleArrow(dc, size/4, size*0.8)
		return
	}
	drawSingleArrow(dc, 0, size)
}

// drawSingleArrow draws an upward arrow of height s centered at (0, oy)
func drawSingleArrow(dc *gg.Context, oy, s float64) {
	w := s * 0.5

	dc.NewSubPath()
	dc.MoveTo(0, oy-s/2)
	dc.LineTo(w/2, oy)
	dc.LineTo(w/6, oy)
	dc.LineTo(w/6, oy+s/2)
	dc.LineTo(-w/6, oy+s/2)
	dc.LineTo(-w/6, oy)
	dc.LineTo(-w/2, oy)
	dc.ClosePath()
	dc.Fill()
}

// StatusColor returns the tile color for status
func StatusColor(status *models.GlucoseStatus) string {
	if status == nil || !status.HasValue() {
		return colorUnknown
	}
	if status.IsStale {
		return colorStale
	}

	switch status.Status {
	case models.StatusUrgentLow, models.StatusUrgentHigh:
		return colorUrgent
	case models.StatusLow:
		return colorLow
	case models.StatusHigh:
		return colorHigh
	default:
		return colorInRange
	}
}

func parseHexColor(hex string) (r, g, b byte) {
	if len(hex) == 7 && hex[0] == '#' {
		_, _ = fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b)
	}
	return
}

// Tooltip describes status with a sparkline of the recent history. Windows
// limits tooltips to 128 UTF-16 units, so it gets a two-row variant.
func (g *IconGenerator) Tooltip(status *models.GlucoseStatus) string {
	g.mu.Lock()
	history := append([]float64(nil), g.history...)
	g.mu.Unlock()

	if status == nil || !status.HasValue() {
		if status != nil && status.Error != "" {
			return "Error: " + status.Error
		}
		return "Control Tray - Loading..."
	}

	value := fmt.Sprintf("%.1f mmol/L %s", status.Value, status.Trend)

	if g.goos == osWindows {
		parts := []string{value}
		if spark := sparkline(history, 2); spark != "" {
			parts = append(parts, spark)
		}
		line := formatStatus(status.Status) + " " + formatCompactDuration(status.StaleMinutes)
		if status.IsStale {
			line += " ⚠"
		}
		return strings.Join(append(parts, line), "\n")
	}

	var b strings.Builder
	b.WriteString(value)
	if spark := sparkline(history, 6); spark != "" {
		b.WriteString("\n" + spark)
	}
	fmt.Fprintf(&b, "\nStatus: %s\nUpdated: %s", formatStatus(status.Status), formatDuration(status.StaleMinutes))
	if status.TrendError != "" {
		b.WriteString("\nTrend unavailable")
	}
	if status.IsStale {
		b.WriteString("\n⚠ No fresh data (check connection)")
	}
	return b.String()
}

// sparkline renders values as rows of braille bars, one column per value.
// Fewer than two values render nothing.
func sparkline(values []float64, rows int) string {
	if len(values) < 2 || rows <= 0 {
		return ""
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	steps := float64(len(brailleLevels) - 1)
	grid := make([][]rune, rows)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(string(brailleLevels[0]), len(values)))
	}

	for x, v := range values {
		// Lowest value still gets one step so every column is visible
		filled := max(1, int((v-lo)/span*float64(rows)*steps+0.5))
		for y := 0; y < rows && filled > 0; y++ {
			level := min(filled, int(steps))
			grid[rows-1-y][x] = brailleLevels[level]
			filled -= level
		}
	}

	lines := make([]string, rows)
	for i, row := range grid {
		lines[i] = string(row)
	}
	return strings.Join(lines, "\n")
}

func formatStatus(status string) string {
	switch status {
	case models.StatusUrgentLow:
		return "Urgent Low"
	case models.StatusUrgentHigh:
		return "Urgent High"
	case models.StatusLow:
		return "Low"
	case models.StatusHigh:
		return "High"
	case models.StatusNormal:
		return "In Range"
	default:
		return status
	}
}

func formatDuration(minutes int) string {
	switch {
	case minutes < 1:
		return "just now"
	case minutes == 1:
		return "1 minute ago"
	case minutes < 60:
		return fmt.Sprintf("%d minutes ago", minutes)
	case minutes < 120:
		return "1 hour ago"
	default:
		return fmt.Sprintf("%d hours ago", minutes/60)
	}
}

func formatCompactDuration(minutes int) string {
	switch {
	case minutes < 1:
		return "now"
	case minutes < 60:
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%dh", minutes/60)
	}
}

// imageToICO wraps img as a single-entry ICO with embedded PNG data
func imageToICO(img image.Image) []byte {
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil
	}

	bounds := img.Bounds()
	dim := func(n int) byte {
		if n >= 256 {
			return 0 // 0 means 256
		}
		return byte(n)
	}

	var buf bytes.Buffer
	header := struct {
		Reserved, Type, Count uint16
	}{0, 1, 1}
	entry := struct {
		Width, Height, Palette, Reserved byte
		Planes, BitCount                 uint16
		Size, Offset                     uint32
	}{
		Width:    dim(bounds.Dx()),
		Height:   dim(bounds.Dy()),
		Planes:   1,
		BitCount: 32,
		Size:     uint32(pngBuf.Len()), // #nosec G115 -- icon PNGs are tiny
		Offset:   6 + 16,
	}
	_ = binary.Write(&buf, binary.LittleEndian, header)
	_ = binary.Write(&buf, binary.LittleEndian, entry)
	buf.Write(pngBuf.Bytes())

	return buf.Bytes()
}
