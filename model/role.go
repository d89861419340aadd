package model

import "fmt"

type Role string

const (
	RoleMaster  Role = "master"
	RoleTServer Role = "tserver"
)

// Roles lists every role in startup order: masters come up before tservers.
var Roles = []Role{RoleMaster, RoleTServer}

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleMaster, RoleTServer:
		return Role(s), nil
	}
	return "", &ValidationError{Field: "role", Message: fmt.Sprintf("unknown role %q (want master or tserver)", s)}
}

func (r Role) IsMaster() bool { return r == RoleMaster }

// Binary is the server executable name for the role.
func (r Role) Binary() string {
	return "yb-" + string(r)
}

// Port names. Masters only expose http and rpc.
const (
	PortHTTP      = "http"
	PortRPC       = "rpc"
	PortRedisRPC  = "redis_rpc"
	PortRedisHTTP = "redis_http"
	PortCQLRPC    = "cql_rpc"
	PortCQLHTTP   = "cql_http"
	PortPgSQLRPC  = "pgsql_rpc"
	PortPgSQLHTTP = "pgsql_http"
)

type PortSet map[string]int

var portSets = map[Role]PortSet{
	RoleMaster: {
		PortHTTP: 7000,
		PortRPC:  7100,
	},
	RoleTServer: {
		PortHTTP:      9000,
		PortRPC:       9100,
		PortRedisRPC:  6379,
		PortRedisHTTP: 11000,
		PortCQLRPC:    9042,
		PortCQLHTTP:   12000,
		PortPgSQLRPC:  5433,
		PortPgSQLHTTP: 13000,
	},
}

// Ports returns the fixed port set for a role. Every daemon of a role shares
// it; daemons are told apart by address only.
func (r Role) Ports() PortSet {
	return portSets[r]
}

func (r Role) Port(name string) int {
	return portSets[r][name]
}
