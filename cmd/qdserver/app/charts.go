package app

import (
	"github.com/qdlab/qd-analyzer/internal/analysis"
	"github.com/qdlab/qd-analyzer/internal/chart"
)

func livChart(r *analysis.LIVReport) *chart.Chart {
	c := chart.Chart{
		Title: "Threshold Current (mA)",
		Unit:  "mA",
		Bars:  make([]chart.Bar, 0, len(r.Records)),
	}
	for _, rec := range r.Records {
		v, ok := rec.Threshold.Value()
		c.Bars = append(c.Bars, chart.Bar{Label: rec.DeviceID, Value: v, Dead: !ok})
	}
	return &c
}

func osaChart(r *analysis.OSAReport) *chart.Chart {
	c := chart.Chart{
		Title: "Tone Count",
		Bars:  make([]chart.Bar, 0, len(r.Records)),
	}
	for _, rec := range r.Records {
		c.Bars = append(c.Bars, chart.Bar{Label: rec.DeviceID, Value: float64(rec.ToneCount)})
	}
	return &c
}
