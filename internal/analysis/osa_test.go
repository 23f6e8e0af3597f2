package analysis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qdlab/qd-analyzer/internal/device"
	"github.com/qdlab/qd-analyzer/internal/summary"
)

func ptr(v float64) *float64 { return &v }

func TestCountTones(t *testing.T) {
	assert.Equal(t, 2, CountTones([]*float64{ptr(0.1), ptr(0.3), ptr(0.5), ptr(0.05)}))
	assert.Equal(t, 0, CountTones([]*float64{ptr(0.2), nil}))
	assert.Equal(t, 0, CountTones(nil))
}

func TestOSA(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"QD-OSA-W1-6-D1-a.csv": "1550.0,0.1\n1550.1,0.3\n1550.2,0.5\n1550.3,0.05\n",
		"QD-OSA-W1-6-D1-b.csv": "1550.0,0.9\n",
		"QD-OSA-W1-7-D2-a.csv": "1550.0,abc\n1550.1,0.21\n1550.2\n",
		"scan.csv":             "wavelength,intensity\n1,0.4\n2,0.6\n",
	})

	report, err := OSA(dir)
	require.NoError(t, err)

	assert.Equal(t, 4, report.TotalFiles)
	require.Len(t, report.Records, 3)
	assert.Equal(t, OSARecord{Identity: device.Identity{DeviceID: "W1-D1", DeviceType: 6}, ToneCount: 1}, report.Records[0])
	assert.Equal(t, OSARecord{Identity: device.Identity{DeviceID: "W1-D2", DeviceType: 7}, ToneCount: 1}, report.Records[1])
	assert.Equal(t, OSARecord{Identity: device.Identity{DeviceID: "scan.csv", DeviceType: device.Unknown}, ToneCount: 2}, report.Records[2])

	p, err := os.ReadFile(filepath.Join(dir, OSASummaryFile))
	require.NoError(t, err)
	assert.Equal(t, "Device Type,Tone Count\n6,1\n7,1\nUnknown,2\n", string(p))

	assert.Equal(t,
		"分析完成！结果已保存至 osa_summary.csv\n"+
			"总文件数：4，唯一器件数：3\n"+
			"重复测试的器件：\n"+
			"- W1-D1 测试了 2 次\n",
		report.Message())
}

func TestOSA_CountsEveryFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"QD-OSA-W1-6-D1-a.csv": "",
		"QD-OSA-W1-6-D1-b.csv": "not,numeric\n",
		"QD-OSA-W1-6-D1-c.csv": "1,0.3\n",
	})

	report, err := OSA(dir)
	require.NoError(t, err)

	require.Len(t, report.Records, 1)
	assert.Equal(t, 1, report.Records[0].ToneCount)
	assert.Equal(t, []device.Occurrence{{DeviceID: "W1-D1", Count: 3}}, report.Duplicates)
}

func TestRunOSA_NoDuplicates(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"QD-OSA-W1-8-D1-x.csv": "1,0.3\n2,0.4\n",
	})

	assert.Equal(t,
		"分析完成！结果已保存至 osa_summary.csv\n"+
			"总文件数：1，唯一器件数：1\n"+
			"没有重复测试的器件。",
		RunOSA(dir))
}

func TestRunOSA_StrayQuote(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"QD-OSA-W1-6-D1-x.csv": "1550 nm\",0.3\n1551,0.1\n1552,0.4\n",
	})

	msg := RunOSA(dir)
	assert.Contains(t, msg, "总文件数：1，唯一器件数：1", msg)

	table, err := summary.Read(filepath.Join(dir, OSASummaryFile))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"6", "2"}}, table.Rows)
}
