package charts

import (
	"encoding/base64"
	"fmt"

	charts "github.com/vicanso/go-charts/v2"
)

// RenderCorrelation draws each asset's average correlation with the rest of
// the universe as a horizontal bar chart. go-charts has no heatmap
// primitive, so the full matrix travels as JSON and this chart summarizes
// it per asset.
func RenderCorrelation(assets []string, corr [][]float64) ([]byte, error) {
	if len(assets) == 0 || len(corr) != len(assets) {
		return nil, fmt.Errorf("correlation matrix does not match asset list")
	}

	n := len(assets)
	averages := make([]float64, n)
	for i := range corr {
		if n == 1 {
			averages[i] = 1.0
			continue
		}
		sum := 0.0
		for j, v := range corr[i] {
			if i != j {
				sum += v
			}
		}
		averages[i] = sum / float64(n-1)
	}

	p, err := charts.HorizontalBarRender(
		[][]float64{averages},
		charts.TitleTextOptionFunc("Average Correlation"),
		charts.YAxisDataOptionFunc(assets),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render correlation chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}

// RenderCorrelationBase64 renders the chart and encodes it for embedding in
// a JSON response.
func RenderCorrelationBase64(assets []string, corr [][]float64) (string, error) {
	buf, err := RenderCorrelation(assets, corr)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
