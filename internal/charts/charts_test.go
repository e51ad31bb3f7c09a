package charts

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanoskov/formbot/internal/model"
	"github.com/ivanoskov/formbot/internal/service"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func sampleReport(t *testing.T, n int) service.Report {
	t.Helper()
	ledger := service.NewLedger()
	at := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	records := []model.Record{
		{Type: "Entrada", Amount: decimal.RequireFromString("1500"), Category: "Salário", Date: "15/07/2025"},
		{Type: "Despesa Pix", Amount: decimal.RequireFromString("80.5"), Category: "Restaurante", Date: "15/07/2025"},
		{Type: "Despesa Débito", Amount: decimal.RequireFromString("120"), Category: "Luz", Date: "15/07/2025"},
	}
	for _, r := range records[:n] {
		ledger.Add(1, r, false, at)
	}
	return ledger.Report(1)
}

func TestGenerateCategoryChart(t *testing.T) {
	g := NewChartGenerator()

	png, err := g.GenerateCategoryChart(sampleReport(t, 3))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}

func TestGenerateCategoryChartSingleBar(t *testing.T) {
	png, err := NewChartGenerator().GenerateCategoryChart(sampleReport(t, 1))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}

func TestGenerateTypePieChart(t *testing.T) {
	png, err := NewChartGenerator().GenerateTypePieChart(sampleReport(t, 3))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}

func TestChartsEmptyReport(t *testing.T) {
	g := NewChartGenerator()

	png, err := g.GenerateCategoryChart(service.Report{})
	require.NoError(t, err)
	assert.Nil(t, png)

	png, err = g.GenerateTypePieChart(service.Report{})
	require.NoError(t, err)
	assert.Nil(t, png)
}
