package resources

import (
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_SSHDConfig(t *testing.T) {
	t.Parallel()
	data, err := Default().Get(SSHDConfig)
	require.NoError(t, err)
	assert.Contains(t, string(data), "PasswordAuthentication no")
	assert.Contains(t, string(data), "AuthorizedKeysFile none")
}

func TestDefault_Names(t *testing.T) {
	t.Parallel()
	names, err := Default().Names()
	require.NoError(t, err)
	assert.Contains(t, names, SSHDConfig)
}

func TestGet_Missing(t *testing.T) {
	t.Parallel()
	_, err := Default().Get("does-not-exist")
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestNew_CustomFS(t *testing.T) {
	t.Parallel()
	b := New(fstest.MapFS{
		"sshd_config": &fstest.MapFile{Data: []byte("Port 2222\n")},
		"sub/ignored": &fstest.MapFile{Data: []byte("x")},
	})

	data, err := b.Get(SSHDConfig)
	require.NoError(t, err)
	assert.Equal(t, "Port 2222\n", string(data))

	names, err := b.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"sshd_config"}, names)
}
