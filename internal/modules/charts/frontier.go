// Package charts renders portfolio analytics as PNG images.
package charts

import (
	"encoding/base64"
	"fmt"

	charts "github.com/vicanso/go-charts/v2"

	"github.com/Jaiminp007/Advanced-Portfolio-Optimizer/internal/modules/optimization"
)

// RenderFrontier draws volatility (x) against expected return (y) for a
// solved frontier curve and returns the PNG bytes.
func RenderFrontier(curve optimization.FrontierCurve, riskFreeRate float64) ([]byte, error) {
	if len(curve) == 0 {
		return nil, fmt.Errorf("empty frontier curve")
	}

	returns := make([]float64, len(curve))
	xLabels := make([]string, len(curve))
	minRet, maxRet := curve[0].Return, curve[0].Return
	for i, p := range curve {
		returns[i] = p.Return * 100
		xLabels[i] = fmt.Sprintf("%.1f%%", p.Volatility*100)
		if p.Return < minRet {
			minRet = p.Return
		}
		if p.Return > maxRet {
			maxRet = p.Return
		}
	}

	padding := (maxRet - minRet) * 0.05
	if padding == 0 {
		padding = 0.01
	}
	yMin := (minRet - padding) * 100
	yMax := (maxRet + padding) * 100

	best := bestSharpePoint(curve)
	title := "Efficient Frontier"
	subtitle := fmt.Sprintf("Max Sharpe: %.2f (rf %.1f%%) | Return %.1f%% at %.1f%% vol",
		best.Sharpe, riskFreeRate*100, best.Return*100, best.Volatility*100)

	splitNum := 6
	if len(xLabels) <= 30 {
		splitNum = len(xLabels) / 3
		if splitNum < 3 {
			splitNum = 3
		}
	}

	p, err := charts.LineRender(
		[][]float64{returns},
		charts.TitleTextOptionFunc(title+"\n"+subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render frontier chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}

// RenderFrontierBase64 renders the curve and encodes it for embedding in a
// JSON response.
func RenderFrontierBase64(curve optimization.FrontierCurve, riskFreeRate float64) (string, error) {
	buf, err := RenderFrontier(curve, riskFreeRate)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

func bestSharpePoint(curve optimization.FrontierCurve) optimization.FrontierPoint {
	best := curve[0]
	for _, p := range curve[1:] {
		if p.Sharpe > best.Sharpe {
			best = p
		}
	}
	return best
}
