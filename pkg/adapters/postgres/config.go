package postgres

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds PostgreSQL-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// SearchPath is the schema search path, e.g. "sales,public".
	SearchPath string `mapstructure:"search_path"`

	// ConnectTimeout is the connect timeout in seconds.
	ConnectTimeout int `mapstructure:"connect_timeout"`
}

func parseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if len(raw) == 0 {
		return p, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid postgres params: %w", err)
	}
	return p, nil
}
