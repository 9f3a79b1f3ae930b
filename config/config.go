package config

// TreeConfig holds the compile/init-time constants named in the core's
// configuration surface: the byte budget used to derive LEAF_MAX/INNER_MAX,
// the delta-chain length that triggers consolidation, and the tier-2 block
// size of the mapping table.
type TreeConfig struct {
	NodeBytes       int
	MaxChainLen     int
	MappingTierBits int
}

func NewTreeConfig() *TreeConfig {
	return &TreeConfig{
		NodeBytes:       256,
		MaxChainLen:     8,
		MappingTierBits: 10,
	}
}

// AppConfig is the top-level config object; it only carries tree tuning
// today because the core has no server/transport surface to configure.
type AppConfig struct {
	TreeConfig *TreeConfig
}

func New() *AppConfig {
	return &AppConfig{
		TreeConfig: NewTreeConfig(),
	}
}
