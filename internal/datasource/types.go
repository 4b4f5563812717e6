package datasource

import "github.com/shopspring/decimal"

// flowRequest is the SoSoValue historical inflow chart request body.
type flowRequest struct {
	Type string `json:"type"`
}

// flowResponse is the SoSoValue response envelope. Code 0 means success.
type flowResponse struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data []FlowPoint `json:"data"`
}

// FlowPoint is one day of the SoSoValue historical inflow chart. Amounts may
// be JSON numbers, numeric strings or null.
type FlowPoint struct {
	Date             string          `json:"date"`
	TotalNetInflow   decimal.Decimal `json:"totalNetInflow"`
	TotalValueTraded decimal.Decimal `json:"totalValueTraded"`
	TotalNetAssets   decimal.Decimal `json:"totalNetAssets"`
	CumNetInflow     decimal.Decimal `json:"cumNetInflow"`
}

// marketChartResponse is the CoinGecko market_chart/range body. Each price
// is a [unix millis, price] pair.
type marketChartResponse struct {
	Prices [][]float64 `json:"prices"`
}
