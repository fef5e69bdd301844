package contracts

// Named universes the gateway can resolve
const (
	UniverseSP500     = "sp500"
	UniverseNasdaq100 = "nasdaq100"
	UniverseDow30     = "dow30"
	UniverseNYSE      = "nyse"
	UniverseNasdaq    = "nasdaq"
)

// KnownUniverses lists every named universe
var KnownUniverses = []string{
	UniverseSP500,
	UniverseNasdaq100,
	UniverseDow30,
	UniverseNYSE,
	UniverseNasdaq,
}

// Universe is a resolved, de-duplicated ticker list
// ⭐ SSOT: S1 → 스크리너 종목 전달
type Universe struct {
	Name    string   `json:"name"`
	Tickers []string `json:"tickers"`
}

// Count returns the number of tickers
func (u *Universe) Count() int {
	return len(u.Tickers)
}

// IsKnownUniverse reports whether name is a named universe
func IsKnownUniverse(name string) bool {
	for _, u := range KnownUniverses {
		if u == name {
			return true
		}
	}
	return false
}
