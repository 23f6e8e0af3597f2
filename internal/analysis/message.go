package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/qdlab/qd-analyzer/internal/device"
	"github.com/qdlab/qd-analyzer/internal/summary"
)

// Status messages are displayed to operators as is.
const (
	msgNoCSVFiles   = "未找到 CSV 文件，请检查文件夹内容。"
	msgFailed       = "分析失败: %v"
	msgDone         = "分析完成！结果已保存至 %s\n总文件数：%d，唯一器件数：%d"
	msgLIVCounts    = "，正常器件：%d，已死器件：%d"
	msgDuplicates   = "\n重复测试的器件：\n"
	msgDuplicate    = "- %s 测试了 %d 次\n"
	msgNoDuplicates = "\n没有重复测试的器件。"
	deadMarker      = "%s 器件已死"
)

// RunLIV runs the LIV analysis on folder and returns the status message.
// It never fails: errors are reported in the message.
func RunLIV(folder string, opts ...Option) (msg string) {
	defer recoverMessage(&msg)

	report, err := LIV(folder, opts...)
	if err != nil {
		return ErrorMessage(err)
	}
	return report.Message()
}

// RunOSA runs the OSA analysis on folder and returns the status message.
// It never fails: errors are reported in the message.
func RunOSA(folder string, opts ...Option) (msg string) {
	defer recoverMessage(&msg)

	report, err := OSA(folder, opts...)
	if err != nil {
		return ErrorMessage(err)
	}
	return report.Message()
}

func recoverMessage(msg *string) {
	if r := recover(); r != nil {
		*msg = fmt.Sprintf(msgFailed, r)
	}
}

// ErrorMessage renders an analysis error as a status message.
func ErrorMessage(err error) string {
	if errors.Is(err, ErrNoCSVFiles) {
		return msgNoCSVFiles
	}
	return fmt.Sprintf(msgFailed, err)
}

// Message returns the status message of the report
func (r *LIVReport) Message() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(msgDone, LIVSummaryFile, r.TotalFiles, len(r.Records)))
	sb.WriteString(fmt.Sprintf(msgLIVCounts, r.Alive, r.Dead))
	writeDuplicates(&sb, r.Duplicates)
	return sb.String()
}

// Message returns the status message of the report
func (r *OSAReport) Message() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(msgDone, OSASummaryFile, r.TotalFiles, len(r.Records)))
	writeDuplicates(&sb, r.Duplicates)
	return sb.String()
}

func writeDuplicates(sb *strings.Builder, dups []device.Occurrence) {
	if len(dups) == 0 {
		sb.WriteString(msgNoDuplicates)
		return
	}

	sb.WriteString(msgDuplicates)
	for _, d := range dups {
		sb.WriteString(fmt.Sprintf(msgDuplicate, d.DeviceID, d.Count))
	}
}

// DeadMarker is the text written in place of the metrics of a dead device.
func DeadMarker(deviceID string) string {
	return fmt.Sprintf(deadMarker, deviceID)
}

func formatMetric(deviceID string, m Metric) string {
	v, ok := m.Value()
	if !ok {
		return DeadMarker(deviceID)
	}
	return summary.FormatFloat(v)
}
