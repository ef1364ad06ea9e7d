package assistant

// stockSymbols maps spoken company or asset names to ticker symbols.
var stockSymbols = map[string]string{
	"apple":     "AAPL",
	"microsoft": "MSFT",
	"facebook":  "FB",
	"tesla":     "TSLA",
	"bitcoin":   "BTC-USD",
}

// LookupSymbol returns the ticker for a lowercase company name.
func LookupSymbol(name string) (string, bool) {
	sym, ok := stockSymbols[name]
	return sym, ok
}
