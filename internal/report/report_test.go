package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/cnvsim/internal/experiment"
	"github.com/copyleftdev/cnvsim/internal/simulation"
)

func testResult() *experiment.Result {
	scenarios := experiment.NeutralVsSelection(100, 1000, 0.05)
	return &experiment.Result{
		Seed:       42,
		Trials:     500,
		Workers:    4,
		Confidence: 0.95,
		Duration:   1500 * time.Millisecond,
		Scenarios: []experiment.ScenarioResult{
			{
				Name:                scenarios[0].Name,
				Parameters:          scenarios[0].Parameters,
				Trials:              500,
				Fixed:               3,
				Lost:                497,
				FixationProbability: 0.006,
				CILow:               0.002,
				CIHigh:              0.017,
				Expected:            0.005,
				MeanFixationTime:    390,
			},
			{
				Name:                scenarios[1].Name,
				Parameters:          scenarios[1].Parameters,
				Trials:              500,
				Fixed:               48,
				Lost:                452,
				FixationProbability: 0.096,
				CILow:               0.073,
				CIHigh:              0.125,
				Expected:            0.0952,
				MeanFixationTime:    205.5,
			},
		},
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, testResult()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Fixation Probability (Neutral): 0.006\nFixation Probability (Positive Selection): 0.096\n"))
	assert.Contains(t, out, "SCENARIO")
	assert.Contains(t, out, "[0.073, 0.125]")
	assert.Contains(t, out, "seed=42 workers=4")
}

func TestSaveBarChart(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"results_chart.png", "results_chart.svg"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, SaveBarChart(testResult(), path))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Greater(t, info.Size(), int64(0))
		})
	}
}

func TestBarChartRejectsEmptyResult(t *testing.T) {
	_, err := BarChart(&experiment.Result{})
	assert.Error(t, err)
	_, err = BarChart(nil)
	assert.Error(t, err)
}

func TestWriteChartPNG(t *testing.T) {
	p, err := BarChart(testResult())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, p, "PNG"))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")), "png signature")

	assert.Error(t, WriteChart(&buf, p, "bmp"))
}

func TestSaveTrajectoryChart(t *testing.T) {
	params := simulation.Parameters{PopulationSize: 100, SelectionCoefficient: 0.05, GenerationLimit: 200, InitialFrequency: 0.005}
	traj := simulation.Trajectory{0.005, 0.01, 0.02, 0.015, 0.03}

	path := filepath.Join(t.TempDir(), "test_simulation.png")
	require.NoError(t, SaveTrajectoryChart(traj, params, path))
	_, err := os.Stat(path)
	assert.NoError(t, err)

	_, err = TrajectoryChart(nil, params)
	assert.Error(t, err)
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, "png", FormatOf("results_chart.PNG"))
	assert.Equal(t, "svg", FormatOf("/tmp/a.b/chart.svg"))
	assert.Equal(t, "", FormatOf("chart"))
}
