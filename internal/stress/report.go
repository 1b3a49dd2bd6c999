package stress

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

func rendition() tablewriter.Option {
	return tablewriter.WithRendition(tw.Rendition{
		Borders: tw.Border{
			Left:   tw.On,
			Top:    tw.Off,
			Right:  tw.On,
			Bottom: tw.Off,
		},
	})
}

// Report prints the cache counters and the contention of every bucket lock.
func Report(out io.Writer, r Result) error {
	w := tablewriter.NewWriter(out).Options(rendition(), tablewriter.WithHeader([]string{"Metric", "Value"}))
	rows := [][]any{
		{"ops", r.Ops},
		{"ops/s", fmt.Sprintf("%0.0f", r.OpsPerSecond())},
		{"writes", r.Writes},
		{"hits", r.Stats.Hits()},
		{"misses", r.Stats.Misses()},
		{"hit ratio", fmt.Sprintf("%0.2f", r.Stats.Ratio())},
		{"borrows", r.Stats.Borrows()},
		{"evictions", r.Stats.Evictions()},
		{"retries", r.Stats.Retries()},
		{"device reads", r.Stats.DeviceReads()},
		{"device writes", r.Stats.DeviceWrites()},
		{"device errors", r.Stats.DeviceErrors()},
	}
	for _, row := range rows {
		if err := w.Append(row...); err != nil {
			return err
		}
	}
	if err := w.Render(); err != nil {
		return err
	}

	var acquires, spins uint64
	w = tablewriter.NewWriter(out).Options(rendition(), tablewriter.WithHeader([]string{"Bucket", "Acquires", "Spins", "Length"}))
	for _, l := range r.Locks {
		acquires += l.Acquires
		spins += l.Spins
		if err := w.Append(strconv.Itoa(l.Bucket), l.Acquires, l.Spins, l.Length); err != nil {
			return err
		}
	}
	if err := w.Append("total", acquires, spins, ""); err != nil {
		return err
	}
	return w.Render()
}
