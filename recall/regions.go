package recall

// Regions 是实时召回时 fan-out 的固定地区目录（ISO2）。
var Regions = []string{
	"US", "CA", "MX", "BR", "AR",
	"GB", "IE", "FR", "DE", "ES", "IT", "NL", "BE", "CH", "AT",
	"SE", "NO", "DK", "FI", "PL", "CZ", "PT",
	"AU", "NZ", "JP", "KR", "SG",
	"IN", "ZA", "AE",
}
