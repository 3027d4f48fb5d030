package mesh

// Default grid resolution in degrees.
const (
	DefaultCellLat = 0.05
	DefaultCellLon = 0.1

	// DefaultPadding is the number of cells added around a bounded request so
	// that neighbouring tiles overlap instead of leaving a seam.
	DefaultPadding = 1

	// MaxVertices is the size of the 16-bit index space.
	MaxVertices = 1 << 16
)

// AssignPolicy decides what happens when several samples round to the same
// vertex.
type AssignPolicy int

const (
	// LastWins keeps the color of the sample met last in input order.
	LastWins AssignPolicy = iota
	// FirstWins keeps the color of the sample met first.
	FirstWins
)

func (p AssignPolicy) String() string {
	switch p {
	case LastWins:
		return "last-wins"
	case FirstWins:
		return "first-wins"
	default:
		return "unknown"
	}
}

// Config holds the grid parameters of a Mesher.
type Config struct {
	CellLat     float64
	CellLon     float64
	Padding     int
	MaxVertices int
	Policy      AssignPolicy
}

// DefaultConfig returns the 0.05° x 0.1° grid with one cell of padding.
func DefaultConfig() Config {
	return Config{
		CellLat:     DefaultCellLat,
		CellLon:     DefaultCellLon,
		Padding:     DefaultPadding,
		MaxVertices: MaxVertices,
		Policy:      LastWins,
	}
}

// Option configures a Mesher.
type Option func(*Config)

// WithCellSize sets the grid resolution. Non-positive values keep the default.
func WithCellSize(cellLat, cellLon float64) Option {
	return func(c *Config) {
		if cellLat > 0 {
			c.CellLat = cellLat
		}
		if cellLon > 0 {
			c.CellLon = cellLon
		}
	}
}

// WithPadding sets the number of cells added on each side of a bounded request.
func WithPadding(cells int) Option {
	return func(c *Config) {
		if cells >= 0 {
			c.Padding = cells
		}
	}
}

// WithMaxVertices lowers the per-mesh vertex budget. It can never exceed the
// 16-bit index space.
func WithMaxVertices(n int) Option {
	return func(c *Config) {
		if n > 0 && n <= MaxVertices {
			c.MaxVertices = n
		}
	}
}

// WithAssignPolicy selects how colliding samples are resolved.
func WithAssignPolicy(p AssignPolicy) Option {
	return func(c *Config) {
		c.Policy = p
	}
}
