package optimization

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

const dateLayout = "2006-01-02"

// BuildStatistics converts per-asset price histories into annualized return
// statistics. Series are aligned to the intersection of their dates, daily
// logarithmic returns are computed per asset, and both the mean vector and
// the sample covariance matrix (n-1 denominator) are scaled by 252 trading
// days.
//
// The asset order of the result is the order of the assets argument and is
// fixed for the lifetime of the request: every downstream weight vector is
// positionally tied to it.
func BuildStatistics(assets []string, prices map[string]PriceSeries) (*ReturnStatistics, error) {
	if len(assets) == 0 {
		return nil, fmt.Errorf("%w: no assets provided", ErrInsufficientData)
	}

	// Index each series by calendar date.
	pricesByAsset := make(map[string]map[string]float64, len(assets))
	for _, asset := range assets {
		series, ok := prices[asset]
		if !ok || len(series) == 0 {
			return nil, fmt.Errorf("%w: no price history for %s", ErrInsufficientData, asset)
		}
		byDate := make(map[string]float64, len(series))
		for _, p := range series {
			byDate[p.Date.Format(dateLayout)] = p.Close
		}
		pricesByAsset[asset] = byDate
	}

	// Intersection of dates across all assets.
	var dates []string
	for date := range pricesByAsset[assets[0]] {
		common := true
		for _, asset := range assets[1:] {
			if _, ok := pricesByAsset[asset][date]; !ok {
				common = false
				break
			}
		}
		if common {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)

	if len(dates) < 2 {
		return nil, fmt.Errorf("%w: only %d overlapping observations", ErrInsufficientData, len(dates))
	}

	// Daily log returns per asset over the aligned dates.
	numObs := len(dates) - 1
	returns := make(map[string][]float64, len(assets))
	for _, asset := range assets {
		byDate := pricesByAsset[asset]
		rets := make([]float64, numObs)
		for i := 1; i < len(dates); i++ {
			prev := byDate[dates[i-1]]
			cur := byDate[dates[i]]
			if prev <= 0 || cur <= 0 {
				return nil, fmt.Errorf("%w: non-positive price for %s on %s", ErrNumeric, asset, dates[i])
			}
			rets[i-1] = math.Log(cur / prev)
		}
		returns[asset] = rets
	}

	// Sample covariance needs at least 2 return observations (n-1 > 0).
	if numObs < 2 {
		return nil, fmt.Errorf("%w: %d return observations, need at least 2", ErrInsufficientData, numObs)
	}

	n := len(assets)
	meanReturns := make(map[string]float64, n)
	for _, asset := range assets {
		meanReturns[asset] = stat.Mean(returns[asset], nil) * TradingDaysPerYear
	}

	cov := make([][]float64, n)
	for i := range cov {
		cov[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			c := stat.Covariance(returns[assets[i]], returns[assets[j]], nil) * TradingDaysPerYear
			cov[i][j] = c
			if i != j {
				cov[j][i] = c
			}
		}
	}

	orderedAssets := make([]string, n)
	copy(orderedAssets, assets)

	return &ReturnStatistics{
		Assets:       orderedAssets,
		MeanReturns:  meanReturns,
		Covariance:   cov,
		Observations: numObs,
	}, nil
}
