package generator

// Config drives the synthetic network generator.
type Config struct {
	// MaxLevel is the deepest level generated; the root sits at level 1.
	MaxLevel int
	// RootChildren is the number of members the root introduces directly.
	RootChildren int
	// MaxChildren bounds the members any non-root member introduces.
	MaxChildren int
	// MaxMembers stops generation once reached.
	MaxMembers   int
	ActiveChance float64
	// Tiers are drawn uniformly; prices scale the generated volume.
	Tiers     []TierPrice
	RootID    string
	HexIDs    bool
	NamedRoot string
	Seed      int64
}

// TierPrice is a package tier available to generated members.
type TierPrice struct {
	Name  string
	Price float64
}

// DefaultConfig mirrors the demo network: six levels below the root, mostly active members.
func DefaultConfig() Config {
	return Config{
		MaxLevel:     7,
		RootChildren: 5,
		MaxChildren:  6,
		MaxMembers:   5000,
		ActiveChance: 0.8,
		Tiers: []TierPrice{
			{Name: "Bronze", Price: 30},
			{Name: "Silver", Price: 50},
			{Name: "Gold", Price: 100},
			{Name: "Diamond", Price: 200},
		},
		HexIDs:    true,
		NamedRoot: "YOU",
		Seed:      42,
	}
}
