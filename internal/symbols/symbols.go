// Package symbols нормализует упоминания инструментов из свободного текста
// в канонические торговые символы.
package symbols

import "strings"

// instruments — упорядоченный список алиасов. Порядок важен: выигрывает
// первое совпадение по подстроке, поэтому полные тикеры идут раньше
// коротких синонимов.
var instruments = []string{
	// Forex major
	"EURUSD", "GBPUSD", "USDJPY", "USDCHF", "AUDUSD", "USDCAD", "NZDUSD",
	// Forex minor
	"EURGBP", "EURJPY", "GBPJPY", "EURCHF", "AUDJPY", "GBPAUD", "EURAUD", "NZDJPY",
	"GBPCAD", "EURCAD", "AUDCAD", "AUDNZD", "GBPNZD", "EURNZD", "CHFJPY", "CADCHF",
	// Metals
	"GOLD", "XAUUSD", "SILVER", "XAGUSD", "XAUEUR", "XAUAUD", "XAUJPY",
	// Oil / energy
	"OIL", "USOIL", "UKOIL", "CRUDE", "WTI", "BRENT", "NGAS", "NATURALGAS",
	// Crypto
	"BTCUSD", "BITCOIN", "BTC", "ETHUSD", "ETHEREUM", "ETH", "XRPUSD", "LTCUSD",
	"BCHUSD", "ADAUSD", "DOGUSD", "DOGEUSD", "SOLUSD", "BNBUSD", "MATICUSD",
	// Indices
	"US30", "DOW", "DOWJONES", "US500", "SPX500", "SP500", "NAS100", "NASDAQ",
	"UK100", "FTSE", "GER30", "DAX", "FRA40", "CAC", "JPN225", "NIKKEI",
	"AUS200", "HK50", "CHINA50", "EUSTX50", "SPA35",
	// Commodities
	"COPPER", "PLATINUM", "PALLADIUM", "COCOA", "COFFEE", "SUGAR", "COTTON",
	"WHEAT", "CORN", "SOYBEAN",
}

// canonical — приведение алиаса к торговому символу брокера.
var canonical = map[string]string{
	"GOLD":       "XAUUSD",
	"SILVER":     "XAGUSD",
	"OIL":        "USOIL",
	"CRUDE":      "USOIL",
	"WTI":        "USOIL",
	"BRENT":      "UKOIL",
	"BITCOIN":    "BTCUSD",
	"BTC":        "BTCUSD",
	"ETHEREUM":   "ETHUSD",
	"ETH":        "ETHUSD",
	"DOW":        "US30",
	"DOWJONES":   "US30",
	"SPX500":     "US500",
	"SP500":      "US500",
	"NASDAQ":     "NAS100",
	"FTSE":       "UK100",
	"DAX":        "GER30",
	"CAC":        "FRA40",
	"NIKKEI":     "JPN225",
	"NATURALGAS": "NGAS",
}

// Resolve ищет первый известный инструмент в тексте (ожидает upper-case)
// и возвращает его канонический символ.
func Resolve(upperText string) (string, bool) {
	for _, inst := range instruments {
		if strings.Contains(upperText, inst) {
			if c, ok := canonical[inst]; ok {
				return c, true
			}
			return inst, true
		}
	}
	return "", false
}

// Canonical нормализует уже выделенный алиас (или возвращает его как есть).
func Canonical(alias string) string {
	if c, ok := canonical[strings.ToUpper(alias)]; ok {
		return c
	}
	return strings.ToUpper(alias)
}
