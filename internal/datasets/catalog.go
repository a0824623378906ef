package datasets

import "time"

// Ticker names one upstream series.
type Ticker struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// Resource ids as they appear in the refresh tracker.
const (
	FXHistory          = "FX_historical.csv"
	StocksHistory      = "stocks_history.csv"
	IndicesHistory     = "indices_historical.csv"
	USYields           = "us_yields.csv"
	OECDYields         = "oecd_yields.csv"
	FXMatrix           = "FX_rate_matrix.csv"
	StocksSnapshot     = "stocks_snapshot.csv"
	IndicesSnapshot    = "indices_snapshot.csv"
	CrossAsset         = "cross_asset_snapshot.csv"
	MonetaryPolicy     = "monetary_policy_check"
	MetalsHistory      = "hist_metals.csv"
	EnergyHistory      = "hist_energy.csv"
	AgricultureHistory = "hist_agriculture.csv"
	FuturesCurves      = "futures_curves_check"
)

// FRED series are requested from this date on.
var fredStart = time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)

// Policy rates only need the post-2000 regime.
var policyStart = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

var fxHistoryTickers = []Ticker{
	{"USD/EUR", "EURUSD=X"},
	{"USD/JPY", "JPY=X"},
	{"GBP/USD", "GBPUSD=X"},
	{"AUD/USD", "AUDUSD=X"},
	{"NZD/USD", "NZDUSD=X"},
	{"EUR/JPY", "EURJPY=X"},
	{"GBP/JPY", "GBPJPY=X"},
	{"EUR/GBP", "EURGBP=X"},
	{"EUR/CAD", "EURCAD=X"},
	{"EUR/SEK", "EURSEK=X"},
	{"EUR/CHF", "EURCHF=X"},
	{"EUR/HUF", "EURHUF=X"},
	{"USD/CNY", "CNY=X"},
	{"USD/HKD", "HKD=X"},
	{"USD/SGD", "SGD=X"},
	{"USD/INR", "INR=X"},
	{"USD/IDR", "IDR=X"},
	{"USD/THB", "THB=X"},
	{"USD/MYR", "MYR=X"},
	{"USD/PHP", "PHP=X"},
	{"USD/MXN", "MXN=X"},
	{"USD/ZAR", "ZAR=X"},
	{"USD/RUB", "RUB=X"},
}

var stockTickers = []Ticker{
	{"Apple", "AAPL"},
	{"Microsoft", "MSFT"},
	{"Amazon", "AMZN"},
	{"Alphabet", "GOOGL"},
	{"Nvidia", "NVDA"},
	{"SPY (S&P 500 ETF)", "SPY"},
	{"QQQ (Nasdaq 100 ETF)", "QQQ"},
	{"EFA (MSCI EAFE ETF)", "EFA"},
	{"EEM (MSCI Emerging Markets ETF)", "EEM"},
}

var indexTickers = []Ticker{
	{"S&P 500", "^GSPC"},
	{"Dow Jones", "^DJI"},
	{"Nasdaq 100", "^NDX"},
	{"Euro Stoxx 50", "^STOXX50E"},
	{"Nikkei 225", "^N225"},
}

var usYieldSeries = []Ticker{
	{"3M", "DGS3MO"},
	{"2Y", "DGS2"},
	{"5Y", "DGS5"},
	{"10Y", "DGS10"},
	{"30Y", "DGS30"},
}

var oecdYieldSeries = []Ticker{
	{"Germany 10Y", "IRLTLT01DEM156N"},
	{"France 10Y", "IRLTLT01FRM156N"},
	{"Italy 10Y", "IRLTLT01ITM156N"},
	{"United Kingdom 10Y", "IRLTLT01GBM156N"},
	{"Japan 10Y", "IRLTLT01JPM156N"},
	{"Canada 10Y", "IRLTLT01CAM156N"},
}

var policyRateSeries = []Ticker{
	{"Fed Funds", "FEDFUNDS"},
	{"ECB Deposit Facility", "ECBDFR"},
	{"Bank of England", "IRSTCI01GBM156N"},
	{"Bank of Japan", "IRSTCI01JPM156N"},
}

var crossAssetTickers = []Ticker{
	{"S&P 500", "^GSPC"},
	{"US 10Y Yield", "^TNX"},
	{"Dollar Index", "DX-Y.NYB"},
	{"Gold", "GC=F"},
	{"Crude Oil WTI", "CL=F"},
	{"Bitcoin", "BTC-USD"},
}

var metalsTickers = []Ticker{
	{"Gold", "GC=F"},
	{"Silver", "SI=F"},
	{"Copper", "HG=F"},
	{"Platinum", "PL=F"},
}

var energyTickers = []Ticker{
	{"Crude Oil WTI", "CL=F"},
	{"Crude Oil Brent", "BZ=F"},
	{"Natural Gas", "NG=F"},
	{"Heating Oil", "HO=F"},
}

var agricultureTickers = []Ticker{
	{"Corn", "ZC=F"},
	{"Wheat", "ZW=F"},
	{"Soybeans", "ZS=F"},
	{"Coffee", "KC=F"},
}

var futuresTickers = []Ticker{
	{"Crude Oil WTI", "CL=F"},
	{"Crude Oil Brent", "BZ=F"},
	{"Natural Gas", "NG=F"},
	{"Gold", "GC=F"},
	{"Silver", "SI=F"},
	{"Copper", "HG=F"},
}
