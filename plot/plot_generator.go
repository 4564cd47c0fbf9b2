package plot

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
)

var ErrNoData = errors.New("nothing to draw")

// DrawDigitBars renders the distribution as a PNG bar chart.
func DrawDigitBars(d DigitDistribution) ([]byte, error) {
	return DrawPlotBar(d)
}

func DrawPlotBar(data dataForGraph) ([]byte, error) {
	barValues := data.generateBarValues()
	if len(barValues) == 0 {
		return nil, ErrNoData
	}
	ticks := data.generateGrid()
	maxY := findMaxValue(data.getYValues())
	if len(ticks) > 0 {
		maxY = ticks[len(ticks)-1].Value
	}
	if maxY <= 0 {
		return nil, ErrNoData
	}

	paddingX := customizePaddingXBottom(barValues)
	width, height := data.calculateChartDimensions(40)

	bar := chart.BarChart{
		Title: data.GetNameGraph(),
		Background: chart.Style{
			StrokeColor: chart.ColorBlack,
			Padding: chart.Box{
				Bottom: paddingX,
				Top:    50,
			},
		},
		Height:   height + 50,
		Width:    width + paddingX + 50,
		BarWidth: 40,
		Bars:     barValues,
		YAxis: chart.YAxis{
			Name: data.getNameYAxis(),
			Range: &chart.ContinuousRange{
				Min: 0.0,
				Max: maxY,
			},
			Style: chart.Style{
				StrokeWidth: 2,
				StrokeColor: chart.ColorBlack,
				FontSize:    12,
			},
			Ticks: ticks,
			GridMajorStyle: chart.Style{
				StrokeColor:     chart.ColorBlack,
				StrokeWidth:     1,
				StrokeDashArray: []float64{5.0, 5.0},
			},
		},
		XAxis: chart.Style{
			StrokeWidth:         2,
			StrokeColor:         chart.ColorBlack,
			TextRotationDegrees: 88,
			FontSize:            12,
		},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := bar.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("error rendering chart: %w", err)
	}
	return buffer.Bytes(), nil
}

func calculateGridStep(maxValue float64) float64 {
	if maxValue <= 0 {
		return 0
	}
	if maxValue < 1e-10 {
		return 1e-10
	}

	magnitude := math.Pow(10, math.Floor(math.Log10(maxValue)))
	normalized := maxValue / magnitude

	var step float64
	switch {
	case normalized <= 1:
		step = 0.2
	case normalized <= 2:
		step = 0.5
	case normalized <= 5:
		step = 1.0
	default:
		step = 2.0
	}

	finalStep := step * magnitude
	if finalStep >= 1000 {
		return math.Round(finalStep/100) * 100
	}
	if finalStep >= 100 {
		return math.Round(finalStep/10) * 10
	}
	return finalStep
}

func findMaxValue(y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	max := y[0]
	for _, v := range y {
		if v > max {
			max = v
		}
	}
	return max
}

func customizePaddingXBottom(values []chart.Value) int {
	count := 0
	for _, v := range values {
		if len(v.Label) > count {
			count = len(v.Label)
		}
	}
	return count * 8
}
