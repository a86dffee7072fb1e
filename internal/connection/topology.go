package connection

import (
	"context"

	"golang.org/x/sync/errgroup"

	herrors "github.com/koltyakov/pgindexhealth/internal/errors"
)

// Topology is a point-in-time view of a cluster: exactly one primary and the
// remaining hosts as replicas sorted by identity.
type Topology struct {
	Primary  Connection
	Replicas []Connection
}

// All returns the primary followed by the replicas.
func (t Topology) All() []Connection {
	out := make([]Connection, 0, 1+len(t.Replicas))
	if t.Primary != nil {
		out = append(out, t.Primary)
	}
	return append(out, t.Replicas...)
}

// Size is the number of hosts in the view.
func (t Topology) Size() int {
	return len(t.All())
}

// ResolveTopology probes every connection concurrently and classifies it.
// Nothing is cached; each call reflects the roles at that moment. The first
// probe failure aborts resolution.
func ResolveTopology(ctx context.Context, conns []Connection, resolver RoleResolver) (Topology, error) {
	conns = NewCluster(conns...).Connections()
	if len(conns) == 0 {
		return Topology{}, &herrors.NoPrimaryFoundError{}
	}

	roles := make([]bool, len(conns))
	g, gctx := errgroup.WithContext(ctx)
	for i, conn := range conns {
		i, conn := i, conn // per-iteration copies; go directive is 1.21
		g.Go(func() error {
			primary, err := resolver.IsPrimary(gctx, conn)
			if err != nil {
				return err
			}
			roles[i] = primary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Topology{}, err
	}

	var (
		t         Topology
		primaries []string
	)
	for i, conn := range conns {
		if roles[i] {
			primaries = append(primaries, conn.Host().String())
			t.Primary = conn
			continue
		}
		t.Replicas = append(t.Replicas, conn)
	}

	switch len(primaries) {
	case 1:
		return t, nil
	case 0:
		hosts := make([]string, len(conns))
		for i, conn := range conns {
			hosts[i] = conn.Host().String()
		}
		return Topology{}, &herrors.NoPrimaryFoundError{Hosts: hosts}
	default:
		return Topology{}, &herrors.AmbiguousPrimaryError{Primaries: primaries}
	}
}
