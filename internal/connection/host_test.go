package connection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koltyakov/pgindexhealth/internal/connection"
	herrors "github.com/koltyakov/pgindexhealth/internal/errors"
)

func TestNewHost(t *testing.T) {
	h, err := connection.NewHost("db-1", 5432, "postgres://db-1:5432/app", true)
	require.NoError(t, err)
	assert.Equal(t, "db-1:5432", h.String())
	assert.Equal(t, connection.HostKey{Name: "db-1", Port: 5432}, h.Key())

	_, err = connection.NewHost("", 5432, "", true)
	assert.ErrorIs(t, err, herrors.ErrInvalidConnectionString)

	_, err = connection.NewHost("db-1", 1023, "", true)
	assert.ErrorIs(t, err, herrors.ErrInvalidConnectionString)

	_, err = connection.NewHost("db-1", 65536, "", true)
	assert.ErrorIs(t, err, herrors.ErrInvalidConnectionString)

	_, err = connection.NewHost("db-1", 65535, "", true)
	assert.NoError(t, err)
}

func TestHostEqualityIgnoresConnectionDetails(t *testing.T) {
	a, err := connection.NewHost("db-1", 5432, "postgres://a@db-1:5432/app", true)
	require.NoError(t, err)
	b, err := connection.NewHost("db-1", 5432, "postgres://b@db-1:5432/app?sslmode=require", false)
	require.NoError(t, err)
	c, err := connection.NewHost("db-1", 5433, "postgres://a@db-1:5433/app", true)
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))

	set := map[connection.HostKey]bool{a.Key(): true}
	assert.True(t, set[b.Key()])
}

func TestHostKeyStringBracketsIPv6(t *testing.T) {
	assert.Equal(t, "[::1]:5432", connection.HostKey{Name: "::1", Port: 5432}.String())
}

func TestHostFromURL(t *testing.T) {
	const url = "postgres://app@db-1:5432/app?target_session_attrs=standby"
	h, err := connection.HostFromURL(url)
	require.NoError(t, err)
	assert.Equal(t, "db-1", h.Name)
	assert.Equal(t, 5432, h.Port)
	assert.Equal(t, url, h.ConnString)
	assert.False(t, h.CanBePrimary)

	_, err = connection.HostFromURL("postgres://db-1:5432,db-2:5432/app")
	assert.ErrorIs(t, err, herrors.ErrInvalidConnectionString)
}
