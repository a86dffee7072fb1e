package connection

import (
	"context"

	herrors "github.com/koltyakov/pgindexhealth/internal/errors"
)

// isPrimarySQL returns true on a writable host and false on a hot standby.
const isPrimarySQL = "select not pg_is_in_recovery()"

// RoleResolver answers whether a host currently accepts writes.
type RoleResolver interface {
	IsPrimary(ctx context.Context, conn Connection) (bool, error)
}

// PrimaryDeterminer asks the server itself. It keeps no state, so a failover
// is observed on the next call.
type PrimaryDeterminer struct{}

// IsPrimary runs the recovery probe. Any failure to get an answer is reported
// as the host being unreachable.
func (PrimaryDeterminer) IsPrimary(ctx context.Context, conn Connection) (bool, error) {
	var primary bool
	if err := conn.QueryRow(ctx, isPrimarySQL).Scan(&primary); err != nil {
		return false, herrors.NewHostUnreachableError(conn.Host().String(), "role probe", err)
	}
	return primary, nil
}
