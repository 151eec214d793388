package sqlite

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// defaultBusyTimeoutMS is applied when target.params.busy_timeout_ms is unset.
const defaultBusyTimeoutMS = 5000

// Params holds SQLite-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// BusyTimeoutMS is how long a statement waits on a locked database file.
	BusyTimeoutMS int `mapstructure:"busy_timeout_ms"`

	// Pragmas are applied after connecting, e.g. {"cache_size": "-20000"}.
	Pragmas map[string]string `mapstructure:"pragmas"`
}

// parseParams decodes raw params into Params.
func parseParams(raw map[string]any) (*Params, error) {
	p := &Params{BusyTimeoutMS: defaultBusyTimeoutMS}
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
		return nil, fmt.Errorf("invalid sqlite params: %w", err)
	}
	return p, nil
}
