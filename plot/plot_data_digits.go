package plot

import (
	"fmt"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/pivolan/benford_analyzer/benford"
)

var (
	observedColor = drawing.ColorPurple.WithAlpha(100)
	expectedColor = drawing.ColorFromHex("7C90DB")
)

// DigitDistribution is what the charts draw: observed and expected
// percentage per leading digit.
type DigitDistribution struct {
	Title    string
	Subtitle string
	Digits   []int
	Observed []float64
	Expected []float64
}

func NewDigitDistribution(a *benford.Analyzer) DigitDistribution {
	title := a.Title()
	if title == "" {
		title = "Leading digits"
	}
	return DigitDistribution{
		Title:    title,
		Subtitle: fmt.Sprintf("n = %d, chi-square = %.2f", a.TotalOccurrences(), a.ChiSquare()),
		Digits:   a.Digits(),
		Observed: a.ObservedFlat(),
		Expected: a.ExpectedFlat(),
	}
}

func (d DigitDistribution) GetNameGraph() string {
	return d.Title + ": observed vs Benford"
}

func (d DigitDistribution) getNameYAxis() string {
	return "%"
}

// getYValues returns both series; the axis has to fit the larger one.
func (d DigitDistribution) getYValues() []float64 {
	values := make([]float64, 0, len(d.Observed)+len(d.Expected))
	values = append(values, d.Observed...)
	return append(values, d.Expected...)
}

func (d DigitDistribution) labels() []string {
	labels := make([]string, len(d.Digits))
	for i, digit := range d.Digits {
		labels[i] = strconv.Itoa(digit)
	}
	return labels
}

func (d DigitDistribution) calculateChartDimensions(minBarWidth float64) (width, height int) {
	bars := 2 * len(d.Digits)
	if bars == 0 || minBarWidth <= 0 {
		return 0, 0
	}
	const (
		paddingY     = 100
		spacingRatio = 0.2
		aspectRatio  = 9.0 / 16.0
	)
	x := 1.1
	if bars < 10 {
		x = 3.0
	}
	barSpacing := minBarWidth * spacingRatio
	width = int(((minBarWidth+barSpacing)*float64(bars)+paddingY)*x) + paddingY
	height = int(float64(width) * aspectRatio)
	return width, height
}

// generateBarValues pairs every observed bar with the expected one.
func (d DigitDistribution) generateBarValues() []chart.Value {
	bars := make([]chart.Value, 0, 2*len(d.Digits))
	for i, label := range d.labels() {
		var observed, expected float64
		if i < len(d.Observed) {
			observed = d.Observed[i]
		}
		if i < len(d.Expected) {
			expected = d.Expected[i]
		}
		bars = append(bars,
			chart.Value{Value: observed, Label: label, Style: chart.Style{FillColor: observedColor}},
			chart.Value{Value: expected, Label: label + " exp", Style: chart.Style{FillColor: expectedColor}},
		)
	}
	return bars
}

func (d DigitDistribution) generateGrid() []chart.Tick {
	var ticks []chart.Tick
	max := findMaxValue(d.getYValues())
	step := calculateGridStep(max)
	if step <= 0 {
		return nil
	}
	for i := 0.0; i <= max+step; i += step {
		ticks = append(ticks, chart.Tick{Value: i, Label: fmt.Sprintf("%.1f", i)})
	}
	return ticks
}
