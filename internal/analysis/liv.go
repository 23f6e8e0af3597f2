package analysis

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/qdlab/qd-analyzer/internal/device"
	"github.com/qdlab/qd-analyzer/internal/measurement"
	"github.com/qdlab/qd-analyzer/internal/summary"
)

// LIVSummaryFile is the name of the summary written into the analyzed folder.
const LIVSummaryFile = "liv_summary.csv"

const (
	livCurrentCol = 0 // mA
	livVoltageCol = 1 // V
	livPowerCol   = 2 // mW

	maxStartVoltage     = 0.1   // V, first row voltage must lie within ±maxStartVoltage
	lasingPower         = 0.2   // mW, power above which the device is lasing
	referenceCurrent    = 150.0 // mA
	maxThresholdCurrent = 130.0 // mA
	minReferencePower   = 1.0   // mW
)

// LIVHeader is the header row of the LIV summary.
var LIVHeader = []string{"Device Type", "Threshold Current (mA)", "Power at 150 mA (mW)"}

// LIVRecord is the classification of one device from its LIV curve.
type LIVRecord struct {
	device.Identity
	Threshold Metric // Threshold current in mA
	Power150  Metric // Optical power at 150 mA in mW
}

// IsDead reports whether the device failed either viability check
func (r LIVRecord) IsDead() bool {
	return r.Threshold.IsDead() || r.Power150.IsDead()
}

// LIVReport is the outcome of a LIV analysis.
type LIVReport struct {
	Folder      string
	SummaryPath string
	TotalFiles  int         // CSV files found in the folder, including skipped ones
	Records     []LIVRecord // Alive devices first, then dead ones
	Alive       int
	Dead        int
	Duplicates  []device.Occurrence
}

// LIV analyzes every LIV curve in folder and writes LIVSummaryFile into it.
//
// Files are processed in name order. A file is skipped when the voltage of its
// first row is missing or outside ±0.1 V; skipped files do not count as device
// tests. When several files map to the same device, the last one wins.
func LIV(folder string, opts ...Option) (*LIVReport, error) {
	o := newOptions(opts)
	logger := o.logger.With(slog.String("analysis", "liv"), slog.String("folder", folder))

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

	records := newRecordSet[LIVRecord]()
	counter := device.NewCounter()

	for _, file := range files {
		table, err := measurement.ReadFile(file.Path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file.Name, err)
		}

		voltage := table.Float(0, livVoltageCol)
		if voltage == nil {
			logger.Debug("skipping file: no start voltage", slog.String("file", file.Name))
			continue
		}
		if *voltage < -maxStartVoltage || *voltage > maxStartVoltage {
			logger.Debug("skipping file: start voltage out of range",
				slog.String("file", file.Name),
				slog.Float64("voltage", *voltage))
			continue
		}

		id := device.ParseFilename(file.Name)
		counter.Add(id.DeviceID)

		record := ClassifyLIV(id, table.Column(livCurrentCol), table.Column(livPowerCol))
		if record.IsDead() {
			logger.Debug("device is dead",
				slog.String("file", file.Name),
				slog.String("deviceID", id.DeviceID),
				slog.String("reason", record.Threshold.Reason()))
		}

		records.upsert(id.DeviceID, record)
	}

	report := &LIVReport{
		Folder:      folder,
		SummaryPath: filepath.Join(folder, LIVSummaryFile),
		TotalFiles:  len(files),
		Records:     make([]LIVRecord, 0, records.len()),
		Duplicates:  counter.Duplicates(),
	}

	var dead []LIVRecord
	for _, r := range records.items {
		if r.IsDead() {
			dead = append(dead, r)
			continue
		}
		report.Records = append(report.Records, r)
	}
	report.Alive = len(report.Records)
	report.Dead = len(dead)
	report.Records = append(report.Records, dead...)

	if err = summary.Write(report.SummaryPath, report.Summary()); err != nil {
		return nil, fmt.Errorf("writing %s: %w", LIVSummaryFile, err)
	}

	logger.Info("analysis finished",
		slog.Group("stats",
			slog.Int("devices", len(report.Records)),
			slog.Int("alive", report.Alive),
			slog.Int("dead", report.Dead),
			slog.Int("duplicates", len(report.Duplicates)),
		))

	return report, nil
}

// ClassifyLIV computes the threshold current and the power at 150 mA from the
// current (mA) and power (mW) columns of a LIV curve and classifies the device.
//
// The threshold current is the current of the first row whose power exceeds
// 0.2 mW. The power at 150 mA is taken from the first row whose current equals
// 150 exactly. The device is dead when either value is undefined, the
// threshold current exceeds 130 mA, or the power at 150 mA is below 1 mW.
func ClassifyLIV(id device.Identity, current, power []*float64) LIVRecord {
	threshold := thresholdCurrent(current, power)
	power150 := powerAt(referenceCurrent, current, power)

	var reasons []string
	switch {
	case threshold == nil:
		reasons = append(reasons, fmt.Sprintf("no threshold current (power never above %g mW)", lasingPower))
	case *threshold > maxThresholdCurrent:
		reasons = append(reasons, fmt.Sprintf("threshold current %g mA above %g mA", *threshold, maxThresholdCurrent))
	}
	switch {
	case power150 == nil:
		reasons = append(reasons, fmt.Sprintf("no power reading at %g mA", referenceCurrent))
	case *power150 < minReferencePower:
		reasons = append(reasons, fmt.Sprintf("power at %g mA %g mW below %g mW", referenceCurrent, *power150, minReferencePower))
	}

	if len(reasons) > 0 {
		reason := strings.Join(reasons, "; ")
		return LIVRecord{Identity: id, Threshold: Dead(reason), Power150: Dead(reason)}
	}

	return LIVRecord{Identity: id, Threshold: Alive(*threshold), Power150: Alive(*power150)}
}

func thresholdCurrent(current, power []*float64) *float64 {
	for i, p := range power {
		if p != nil && *p > lasingPower {
			return cell(current, i)
		}
	}
	return nil
}

func powerAt(target float64, current, power []*float64) *float64 {
	for i, c := range current {
		if c != nil && *c == target {
			return cell(power, i)
		}
	}
	return nil
}

func cell(col []*float64, i int) *float64 {
	if i >= len(col) {
		return nil
	}
	return col[i]
}

// Summary returns the summary table of the report. Metrics of dead devices
// are rendered as the dead marker of the device.
func (r *LIVReport) Summary() *summary.Table {
	t := &summary.Table{
		Header: LIVHeader,
		Rows:   make([][]string, 0, len(r.Records)),
	}
	for _, rec := range r.Records {
		t.Rows = append(t.Rows, []string{
			rec.DeviceType.String(),
			formatMetric(rec.DeviceID, rec.Threshold),
			formatMetric(rec.DeviceID, rec.Power150),
		})
	}
	return t
}
