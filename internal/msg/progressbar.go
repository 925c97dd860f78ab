package msg

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ProgressBar reports byte progress of a multi-file operation on a single terminal line
type ProgressBar struct {
	Label     string
	Total     int64
	Current   int64
	Start     time.Time
	W         io.Writer
	lastPrint time.Time
	throb     int
}

var throbbers = []rune{'|', '/', '-', '\\'}

func NewProgressBar(label string, total int64, w io.Writer) *ProgressBar {
	return &ProgressBar{
		Label: label,
		Total: total,
		Start: time.Now(),
		W:     w,
	}
}

// Add advances the bar by n bytes, redrawing at most every 40ms
func (pb *ProgressBar) Add(n int64) {
	pb.Current += n
	if time.Since(pb.lastPrint) > 40*time.Millisecond {
		pb.print(false)
		pb.lastPrint = time.Now()
	}
}

func (pb *ProgressBar) Write(p []byte) (int, error) {
	pb.Add(int64(len(p)))
	return len(p), nil
}

func (pb *ProgressBar) print(finish bool) {
	width := 30
	percent := float64(pb.Current) / float64(max(pb.Total, 1))
	if finish {
		percent = 1
	}

	filled := min(int(percent*float64(width)), width)
	bar := strings.Repeat("#", filled) + strings.Repeat("-", width-filled)

	throb := throbbers[pb.throb%len(throbbers)]
	pb.throb++
	if finish {
		throb = ' '
	}

	fmt.Fprintf(pb.W, "\r%s %5.f%% [%s] %c", pb.Label, percent*100, bar, throb)
}

func (pb *ProgressBar) Finish() {
	pb.print(true)
	fmt.Fprintf(pb.W, " %s\n", time.Since(pb.Start).Round(time.Millisecond))
}
