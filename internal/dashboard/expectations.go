package dashboard

// Texts the dashboard renders once it is up.
const (
	DashboardTitle      = "Stock Dashboard | S&P500"
	IndustryDataTitle   = "Industry Data"
	FirstColumnHeader   = "Symbol"
	FilterSector        = "Health Care"
	FilterSectorCompany = "Johnson & Johnson"
)

// ExpectedColumnHeaders are the industry table headers shown by default.
var ExpectedColumnHeaders = []string{
	"Symbol",
	"Name",
	"Weight (%)",
	"Current Price ($)",
	"Price to Earning(PE) Ratio",
	"Market Cap ($)",
	"Dividend Yield (%)",
	"Net Income Latest Qtr (Bil $)",
	"YOY Qtr Profit Growth (%)",
	"Sales Latest Qtr (Bil $)",
	"Debt to Equity (%)",
}

// ExpectedTickers assumes these stay in the top ten by index weight.
var ExpectedTickers = []string{"MSFT", "AAPL", "NVDA", "AMZN", "META"}

// ExpectedCompanyNames pairs with ExpectedTickers.
var ExpectedCompanyNames = []string{
	"Microsoft Corporation",
	"Apple Inc.",
	"NVIDIA Corporation",
	"Amazon.com, Inc.",
	"Meta Platforms, Inc.",
}
