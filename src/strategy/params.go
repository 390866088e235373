package strategy

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ActiveStrategyVersion string `envconfig:"ACTIVE_STRATEGY_VERSION" default:"v5"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// ParamResolver holds the active version and one validated params bundle per version.
type ParamResolver struct {
	active  string
	bundles map[string]Params
}

func NewParamResolver(activeVersion string, bundles ...Params) (*ParamResolver, error) {
	active := NormalizeVersion(activeVersion)
	if active == "" {
		return nil, ErrVersionRequired
	}
	p := &ParamResolver{active: active, bundles: make(map[string]Params, len(bundles))}
	for _, b := range bundles {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("%s params: %w", b.Version(), err)
		}
		p.bundles[NormalizeVersion(b.Version())] = b
	}
	if _, ok := p.bundles[active]; !ok {
		return nil, fmt.Errorf("%w: no params configured for %s", ErrUnknownVersion, active)
	}
	return p, nil
}

func (p *ParamResolver) ActiveVersion() string {
	return p.active
}

// Active returns the params bundle of the active version.
func (p *ParamResolver) Active() Params {
	return p.bundles[p.active]
}
