// internal/workers/catalog/structure-item/config.go
package structureitem

type Config struct {
	DefaultCurrency string
	DefaultCategory string
	MaxNameLength   int
}

func LoadConfig() *Config {
	return &Config{
		DefaultCurrency: "UGX",
		DefaultCategory: "Unknown",
		MaxNameLength:   50,
	}
}
