package analysis

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/qdlab/qd-analyzer/internal/device"
	"github.com/qdlab/qd-analyzer/internal/measurement"
	"github.com/qdlab/qd-analyzer/internal/summary"
)

// OSASummaryFile is the name of the summary written into the analyzed folder.
const OSASummaryFile = "osa_summary.csv"

const (
	osaIntensityCol = 1
	toneThreshold   = 0.2
)

// OSAHeader is the header row of the OSA summary.
var OSAHeader = []string{"Device Type", "Tone Count"}

// OSARecord is the tone count of one device.
type OSARecord struct {
	device.Identity
	ToneCount int
}

// OSAReport is the outcome of an OSA analysis.
type OSAReport struct {
	Folder      string
	SummaryPath string
	TotalFiles  int
	Records     []OSARecord // In order of first appearance
	Duplicates  []device.Occurrence
}

// OSA analyzes every spectrum scan in folder and writes OSASummaryFile into it.
//
// Every file counts as a device test. When several files map to the same
// device, the last one (in name order) wins.
func OSA(folder string, opts ...Option) (*OSAReport, error) {
	o := newOptions(opts)
	logger := o.logger.With(slog.String("analysis", "osa"), slog.String("folder", folder))

	files, err := Discover(folder)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoCSVFiles
	}

	logger.Info("analyzing files",
		slog.Int("files", len(files)),
		slog.String("size", humanize.Bytes(totalSize(files))))

	records := newRecordSet[OSARecord]()
	counter := device.NewCounter()

	for _, file := range files {
		table, err := measurement.ReadFile(file.Path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file.Name, err)
		}

		id := device.ParseFilename(file.Name)
		counter.Add(id.DeviceID)

		tones := CountTones(table.Column(osaIntensityCol))
		logger.Debug("counted tones",
			slog.String("file", file.Name),
			slog.String("deviceID", id.DeviceID),
			slog.Int("tones", tones))

		records.upsert(id.DeviceID, OSARecord{Identity: id, ToneCount: tones})
	}

	report := &OSAReport{
		Folder:      folder,
		SummaryPath: filepath.Join(folder, OSASummaryFile),
		TotalFiles:  len(files),
		Records:     records.items,
		Duplicates:  counter.Duplicates(),
	}

	if err = summary.Write(report.SummaryPath, report.Summary()); err != nil {
		return nil, fmt.Errorf("writing %s: %w", OSASummaryFile, err)
	}

	logger.Info("analysis finished",
		slog.Group("stats",
			slog.Int("devices", len(report.Records)),
			slog.Int("duplicates", len(report.Duplicates)),
		))

	return report, nil
}

// CountTones returns the number of intensity values strictly above 0.2.
// Missing values are not tones.
func CountTones(intensity []*float64) int {
	var n int
	for _, v := range intensity {
		if v != nil && *v > toneThreshold {
			n++
		}
	}
	return n
}

// Summary returns the summary table of the report
func (r *OSAReport) Summary() *summary.Table {
	t := &summary.Table{
		Header: OSAHeader,
		Rows:   make([][]string, 0, len(r.Records)),
	}
	for _, rec := range r.Records {
		t.Rows = append(t.Rows, []string{rec.DeviceType.String(), strconv.Itoa(rec.ToneCount)})
	}
	return t
}
