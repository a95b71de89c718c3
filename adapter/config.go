package adapter

import "github.com/lovromazgon/dstr"

// Mode selects which operand plays which role in a two-operand adapter.
type Mode int

const (
	// Normal uses the left operand as the primary one (s1 op s2).
	Normal Mode = iota
	// Swapped uses the right operand as the primary one (s2 op s1).
	Swapped
)

// DefaultMaxTokens is the number of tokens the tokenize adapter emits at most.
const DefaultMaxTokens = 256

// Config holds the attributes of an adapter. Values out of range are clamped
// when an adapter is created.
type Config struct {
	Mode Mode `json:"mode" mapstructure:"mode"`
	// Precision is the number of digits after the decimal point used to
	// render float atoms, in [0, 10].
	Precision int `json:"precision" mapstructure:"precision"`
	// Position is the initial cutting position of the cut adapter.
	Position int `json:"position" mapstructure:"position"`
	// MaxTokens bounds the output of the tokenize adapter.
	MaxTokens int `json:"max_tokens" mapstructure:"max_tokens"`
	// Initial is the initial content of the right operand (of the only
	// operand for single-operand adapters).
	Initial []dstr.Atom `json:"initial,omitempty" mapstructure:"-"`
}

// DefaultConfig returns the configuration adapters use when nothing else is
// specified.
func DefaultConfig() Config {
	return Config{
		Mode:      Normal,
		Precision: dstr.DefaultPrecision,
		MaxTokens: DefaultMaxTokens,
	}
}

func (c Config) clamped() Config {
	c.Mode = clampMode(c.Mode)
	c.Precision = clampPrecision(c.Precision)
	c.Position = max(c.Position, 0)
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	return c
}

func clampMode(m Mode) Mode {
	return min(max(m, Normal), Swapped)
}

func clampPrecision(p int) int {
	return min(max(p, 0), dstr.MaxPrecision)
}
