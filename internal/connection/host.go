package connection

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	herrors "github.com/koltyakov/pgindexhealth/internal/errors"
)

// Acceptable port range for a cluster member.
const (
	MinPort = 1024
	MaxPort = 65535
)

// HostKey is the identity of a cluster member. It is comparable and used as
// a map key; connection strings and role hints are deliberately not part of it.
type HostKey struct {
	Name string
	Port int
}

// String renders "host:port" (IPv6 names are bracketed).
func (k HostKey) String() string {
	return net.JoinHostPort(k.Name, strconv.Itoa(k.Port))
}

func (k HostKey) validate() error {
	if strings.TrimSpace(k.Name) == "" {
		return fmt.Errorf("host name must not be blank")
	}
	if k.Port < MinPort || k.Port > MaxPort {
		return fmt.Errorf("port %d must be in the range from %d to %d", k.Port, MinPort, MaxPort)
	}
	return nil
}

// Host describes one member of a cluster. Equality is (Name, Port) only.
type Host struct {
	Name         string
	Port         int
	ConnString   string // single-host connection string used to reach it
	CanBePrimary bool   // false when the source URL explicitly targets standbys
}

// NewHost validates and builds a Host.
func NewHost(name string, port int, connString string, canBePrimary bool) (Host, error) {
	key := HostKey{Name: name, Port: port}
	if err := key.validate(); err != nil {
		return Host{}, herrors.NewInvalidConnectionStringError("", err.Error())
	}
	return Host{Name: name, Port: port, ConnString: connString, CanBePrimary: canBePrimary}, nil
}

// HostFromURL builds a Host from a connection string naming exactly one host.
func HostFromURL(connString string) (Host, error) {
	hosts, err := Hosts(connString)
	if err != nil {
		return Host{}, err
	}
	if len(hosts) != 1 {
		return Host{}, invalid(connString, fmt.Sprintf("expected a single host, got %d", len(hosts)))
	}
	// keep the caller's string verbatim rather than the probing variant
	h := hosts[0]
	h.ConnString = connString
	h.CanBePrimary = !IsReplicaURL(connString)
	return h, nil
}

// Key returns the comparable identity.
func (h Host) Key() HostKey {
	return HostKey{Name: h.Name, Port: h.Port}
}

// Equal compares identities, ignoring the connection string and role hint.
func (h Host) Equal(other Host) bool {
	return h.Key() == other.Key()
}

// String renders "host:port".
func (h Host) String() string {
	return h.Key().String()
}

func sortKeys(keys []HostKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].Port < keys[j].Port
	})
}
