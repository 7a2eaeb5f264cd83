package server

// Config holds configuration for the admin HTTP server.
type Config struct {
	// Port is the port where the admin server listens.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to call the admin API. Empty disables the check.
	ApiKey string `mapstructure:"api_key" default:""`
	// Role is the replication role of this node (standalone, master, slave).
	Role string `mapstructure:"role" default:"standalone"`
}

const (
	RoleStandalone = "standalone"
	RoleMaster     = "master"
	RoleSlave      = "slave"
)

// IsValidRole checks if the configured role is known.
func (c Config) IsValidRole() bool {
	switch c.Role {
	case RoleStandalone, RoleMaster, RoleSlave:
		return true
	default:
		return false
	}
}

// Tracks reports whether this node runs trackers and accepts maintenance calls.
// Slaves receive index files through replication and never write to the index themselves.
func (c Config) Tracks() bool {
	return c.Role == RoleStandalone || c.Role == RoleMaster
}
