package entity

// Chain describes a settlement destination network and its canonical
// USD-pegged stable token.
type Chain struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	USDC string `json:"usdc"`
}

// MainnetChains is the fixed set of networks a settlement leg can be
// executed on.
var MainnetChains = []Chain{
	{ID: 1, Name: "Ethereum", USDC: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"},
	{ID: 137, Name: "Polygon", USDC: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"},
	{ID: 42161, Name: "Arbitrum", USDC: "0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8"},
	{ID: 10, Name: "Optimism", USDC: "0x7F5c764cBc14f9669B88837ca1490cCa17c31607"},
	{ID: 56, Name: "BSC", USDC: "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d"},
}

// ChainByID returns the chain with the given network id.
func ChainByID(id int64) (Chain, bool) {
	for _, c := range MainnetChains {
		if c.ID == id {
			return c, true
		}
	}
	return Chain{}, false
}
