package charts

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/ivanoskov/formbot/internal/service"
)

// ChartGenerator renders /resumo reports as PNG images.
type ChartGenerator struct{}

// NewChartGenerator creates a chart generator.
func NewChartGenerator() *ChartGenerator {
	return &ChartGenerator{}
}

var typeColors = map[string]drawing.Color{
	"Entrada":         chart.ColorGreen,
	"Empréstimo":      chart.ColorOrange,
	"Despesa Débito":  chart.ColorRed,
	"Despesa Crédito": chart.ColorYellow,
	"Despesa Pix":     chart.ColorBlue,
	"Saldo":           chart.ColorCyan,
}

// GenerateCategoryChart draws one bar per category, largest first.
// It returns nil when the report is empty.
func (g *ChartGenerator) GenerateCategoryChart(report service.Report) ([]byte, error) {
	if len(report.ByCategory) == 0 {
		return nil, nil
	}

	bars := make([]chart.Value, 0, len(report.ByCategory))
	top := 0.0
	for _, cat := range report.ByCategory {
		amount := cat.Amount.InexactFloat64()
		if amount > top {
			top = amount
		}
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%s (%.0f%%)", cat.Name, cat.Share),
			Value: amount,
			Style: chart.Style{
				StrokeColor: chart.ColorBlue,
				FillColor:   chart.ColorBlue.WithAlpha(160),
				FontSize:    10,
				FontColor:   chart.ColorBlack,
			},
		})
	}

	graph := chart.BarChart{
		Title: "Por categoria",
		TitleStyle: chart.Style{
			FontSize:  14,
			FontColor: chart.ColorBlack,
		},
		Width:    1200,
		Height:   600,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
		YAxis: chart.YAxis{
			// one bar or equal bars would otherwise give a zero range
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("R$ %.0f", v.(float64))
			},
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render category chart: %w", err)
	}
	return buffer.Bytes(), nil
}

// GenerateTypePieChart shows how the total splits across transaction types.
// It returns nil when the report is empty.
func (g *ChartGenerator) GenerateTypePieChart(report service.Report) ([]byte, error) {
	if len(report.ByType) == 0 {
		return nil, nil
	}

	values := make([]chart.Value, 0, len(report.ByType))
	for _, t := range report.ByType {
		style := chart.Style{FontSize: 12, FontColor: chart.ColorBlack}
		if c, ok := typeColors[t.Name]; ok {
			style.FillColor = c
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s: R$ %s (%.1f%%)", t.Name, t.Amount.StringFixed(2), t.Share),
			Value: t.Amount.InexactFloat64(),
			Style: style,
		})
	}

	pie := chart.PieChart{
		Title:  "Por tipo",
		Width:  800,
		Height: 800,
		Values: values,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := pie.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render type pie chart: %w", err)
	}
	return buffer.Bytes(), nil
}
