package model

import (
	"fmt"
	"strconv"
)

// DaemonID names one server process: a role plus its 1-based index.
type DaemonID struct {
	Role  Role
	Index int
}

func NewDaemonID(role Role, index int) DaemonID {
	return DaemonID{Role: role, Index: index}
}

// Address is the loopback address the daemon binds to. It depends only on
// the index, so master-2 and tserver-2 share 127.0.0.2.
func (d DaemonID) Address() string {
	return "127.0.0." + strconv.Itoa(d.Index)
}

func (d DaemonID) String() string {
	return fmt.Sprintf("%s-%d", d.Role, d.Index)
}

// Endpoint returns "ip:port" for a named port of the daemon's role.
func (d DaemonID) Endpoint(port string) string {
	return fmt.Sprintf("%s:%d", d.Address(), d.Role.Port(port))
}

func (d DaemonID) RPCEndpoint() string { return d.Endpoint(PortRPC) }

// AdminURL is the web UI of the daemon.
func (d DaemonID) AdminURL() string {
	return "http://" + d.Endpoint(PortHTTP)
}

// ValidateIndex checks that index is within [1, maxIndex].
func ValidateIndex(index, maxIndex int) error {
	if index < 1 || index > maxIndex {
		return &ValidationError{
			Field:   "index",
			Message: fmt.Sprintf("node index %d out of range [1, %d]", index, maxIndex),
		}
	}
	return nil
}
