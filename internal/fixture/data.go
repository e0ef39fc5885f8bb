package fixture

import "strings"

// Company is one row of the industry table.
type Company struct {
	Symbol        string
	Name          string
	Sector        string
	Weight        string
	Price         string
	PE            string
	MarketCap     string
	DividendYield string
	NetIncome     string
	ProfitGrowth  string
	Sales         string
	DebtToEquity  string
}

// Cells returns the row in column order.
func (c Company) Cells() []string {
	return []string{
		c.Symbol, c.Name, c.Weight, c.Price, c.PE, c.MarketCap,
		c.DividendYield, c.NetIncome, c.ProfitGrowth, c.Sales, c.DebtToEquity,
	}
}

// Columns matches the default column selection of the real dashboard.
var Columns = []string{
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

// Companies is a frozen slice of the index ordered by weight.
var Companies = []Company{
	{"MSFT", "Microsoft Corporation", "Information Technology", "7.01", "415.26", "36.2", "3.09T", "0.72", "21.94", "20.0", "65.59", "28.3"},
	{"AAPL", "Apple Inc.", "Information Technology", "6.55", "227.52", "34.6", "3.46T", "0.44", "14.74", "-35.8", "94.93", "151.9"},
	{"NVDA", "NVIDIA Corporation", "Information Technology", "6.14", "138.07", "64.9", "3.39T", "0.03", "19.31", "109.3", "35.08", "17.2"},
	{"AMZN", "Amazon.com, Inc.", "Consumer Discretionary", "3.59", "186.40", "44.8", "1.96T", "0", "15.33", "55.3", "158.88", "61.5"},
	{"META", "Meta Platforms, Inc.", "Communication Services", "2.56", "589.95", "29.7", "1.49T", "0.34", "15.69", "35.1", "40.59", "27.3"},
	{"GOOGL", "Alphabet Inc.", "Communication Services", "2.01", "164.53", "23.6", "2.02T", "0.49", "26.30", "33.6", "88.27", "8.6"},
	{"BRK.B", "Berkshire Hathaway Inc.", "Financials", "1.71", "462.68", "9.4", "997.63B", "0", "26.25", "-7.0", "92.99", "19.4"},
	{"AVGO", "Broadcom Inc.", "Information Technology", "1.69", "171.86", "148.2", "802.65B", "1.23", "4.32", "1.7", "14.05", "102.9"},
	{"LLY", "Eli Lilly and Company", "Health Care", "1.53", "800.12", "86.5", "760.43B", "0.65", "0.97", "-25.6", "11.44", "217.5"},
	{"JPM", "JPMorgan Chase & Co.", "Financials", "1.30", "222.30", "12.4", "627.56B", "2.25", "12.90", "-2.0", "43.32", "138.1"},
	{"UNH", "UnitedHealth Group Incorporated", "Health Care", "1.08", "564.93", "36.4", "519.11B", "1.49", "6.06", "-3.1", "100.82", "75.4"},
	{"XOM", "Exxon Mobil Corporation", "Energy", "1.06", "119.04", "14.6", "523.81B", "3.29", "8.61", "-5.2", "90.02", "14.9"},
	{"JNJ", "Johnson & Johnson", "Health Care", "0.91", "157.65", "23.1", "379.22B", "3.15", "2.69", "-34.9", "22.47", "57.3"},
}

// Sectors returns every sector in Companies, in first-seen order.
func Sectors() []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range Companies {
		if !seen[c.Sector] {
			seen[c.Sector] = true
			out = append(out, c.Sector)
		}
	}
	return out
}

// InSector returns the companies in sector, or all of them when sector is empty.
func InSector(sector string) []Company {
	sector = strings.TrimSpace(sector)
	if sector == "" {
		return Companies
	}
	var out []Company
	for _, c := range Companies {
		if strings.EqualFold(c.Sector, sector) {
			out = append(out, c)
		}
	}
	return out
}
