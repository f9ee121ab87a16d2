package setup

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imamik/spire/internal/config"
	"github.com/imamik/spire/internal/ops"
	sshplatform "github.com/imamik/spire/internal/platform/ssh"
	spiretesting "github.com/imamik/spire/internal/testing"
)

const catKeytab = "'cat' '/etc/krb5.keytab'"

func twoSupervisors() *config.Config {
	return spiretesting.NewConfigBuilder().
		WithNode(eggs.Hostname, eggs.IP, eggs.Kind).
		WithNode(huevos.Hostname, huevos.IP, huevos.Kind).
		WithNode(spam.Hostname, spam.IP, spam.Kind).
		WithKerberosGateway(true).
		Build()
}

func missingFile(host string) error {
	return &sshplatform.RemoteError{
		Host:       host,
		Command:    catKeytab,
		ExitStatus: 1,
		Output:     "cat: /etc/krb5.keytab: No such file or directory",
		Err:        errors.New("Process exited with status 1"),
	}
}

func TestKeygateway_Disabled(t *testing.T) {
	t.Parallel()
	f := newFixture(spiretesting.MinimalConfig())

	require.NoError(t, SetupKeygateway(t.Context(), f.env, f.queue))
	assert.Equal(t, 0, f.queue.Len())
	assert.Contains(t, f.log.String(), "keygateway disabled; skipping")
	f.secrets.AssertNotCalled(t, "Keytab", mock.Anything, mock.Anything)
}

func TestKeygateway_VerifiesBeforeAnyUpload(t *testing.T) {
	t.Parallel()
	f := newFixture(twoSupervisors())
	f.secrets.On("Keytab", mock.Anything, eggs).Return([]byte("eggs-keytab"), nil)
	f.secrets.On("Keytab", mock.Anything, spam).Return([]byte("spam-keytab"), nil)

	require.NoError(t, SetupKeygateway(t.Context(), f.env, f.queue))
	assert.Equal(t, []string{
		"verify existing keytab on eggs",
		"verify existing keytab on spam",
		"upload keytab for eggs",
		"enable keygateway on eggs",
		"restart keygateway on eggs",
		"upload keytab for spam",
		"enable keygateway on spam",
		"restart keygateway on spam",
	}, f.queue.Names())
}

func TestKeygateway_IdenticalKeytabSkipsUpload(t *testing.T) {
	t.Parallel()
	f := newFixture(spiretesting.FullConfig())
	f.secrets.On("Keytab", mock.Anything, eggs).Return([]byte("\x05\x02keytab"), nil)
	f.remote.On("Output", mock.Anything, eggs, catKeytab).Return([]byte("\x05\x02keytab"), nil)
	f.remote.AcceptAll()

	require.NoError(t, SetupKeygateway(t.Context(), f.env, f.queue))
	require.NoError(t, f.queue.Run(t.Context()))

	f.remote.AssertNotCalled(t, "UploadBytes", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, []string{
		"eggs: " + catKeytab,
		"eggs: 'systemctl' 'enable' 'keygateway'",
		"eggs: 'systemctl' 'restart' 'keygateway'",
	}, f.remote.Transcript())
	assert.Contains(t, f.log.String(), "existing keytab matches local keytab")
}

func TestKeygateway_MismatchFailsBeforeAnyUpload(t *testing.T) {
	t.Parallel()
	f := newFixture(twoSupervisors())
	f.secrets.On("Keytab", mock.Anything, eggs).Return([]byte("eggs-keytab"), nil)
	f.secrets.On("Keytab", mock.Anything, spam).Return([]byte("spam-keytab"), nil)
	f.remote.On("Output", mock.Anything, eggs, catKeytab).Return(nil, missingFile(eggs.IP))
	f.remote.On("Output", mock.Anything, spam, catKeytab).Return([]byte("somebody else's keytab"), nil)
	f.remote.AcceptAll()

	require.NoError(t, SetupKeygateway(t.Context(), f.env, f.queue))
	err := f.queue.Run(t.Context())
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrPreconditionMismatch)
	var mismatch *PreconditionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "spam", mismatch.Host)
	assert.Equal(t, KeytabPath, mismatch.Path)

	var opErr *ops.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "verify existing keytab on spam", opErr.Name)

	// eggs had no keytab and would have been uploaded, but nothing is
	// written until every supervisor has been checked.
	f.remote.AssertNotCalled(t, "UploadBytes", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.remote.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestKeygateway_MissingKeytabUploads(t *testing.T) {
	t.Parallel()
	f := newFixture(spiretesting.FullConfig())
	f.secrets.On("Keytab", mock.Anything, eggs).Return([]byte("fresh"), nil)
	f.remote.On("Output", mock.Anything, eggs, catKeytab).Return(nil, missingFile(eggs.IP))
	f.remote.AcceptAll()

	require.NoError(t, SetupKeygateway(t.Context(), f.env, f.queue))
	require.NoError(t, f.queue.Run(t.Context()))

	f.remote.AssertCalled(t, "UploadBytes", mock.Anything, eggs, []byte("fresh"), KeytabPath, fs.FileMode(0o600))
	assert.Contains(t, f.log.String(), "no existing keytab found")
}

func TestKeygateway_UnreadableKeytabFails(t *testing.T) {
	t.Parallel()
	f := newFixture(spiretesting.FullConfig())
	f.secrets.On("Keytab", mock.Anything, eggs).Return([]byte("fresh"), nil)
	permissionDenied := &sshplatform.RemoteError{Host: eggs.IP, ExitStatus: 2, Err: errors.New("Process exited with status 2")}
	f.remote.On("Output", mock.Anything, eggs, catKeytab).Return(nil, permissionDenied)
	f.remote.AcceptAll()

	require.NoError(t, SetupKeygateway(t.Context(), f.env, f.queue))
	err := f.queue.Run(t.Context())
	require.Error(t, err)

	assert.NotErrorIs(t, err, ErrPreconditionMismatch)
	assert.ErrorIs(t, err, permissionDenied)
	f.remote.AssertNotCalled(t, "UploadBytes", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestKeygateway_ConnectionFailureIsNotMissingFile(t *testing.T) {
	t.Parallel()
	f := newFixture(spiretesting.FullConfig())
	f.secrets.On("Keytab", mock.Anything, eggs).Return([]byte("fresh"), nil)
	f.remote.On("Output", mock.Anything, eggs, catKeytab).Return(nil, errors.New("connection refused"))
	f.remote.AcceptAll()

	require.NoError(t, SetupKeygateway(t.Context(), f.env, f.queue))
	require.Error(t, f.queue.Run(t.Context()))
	f.remote.AssertNotCalled(t, "UploadBytes", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateKeygateway_UploadsUnconditionally(t *testing.T) {
	t.Parallel()
	f := newFixture(twoSupervisors())
	f.secrets.On("Keytab", mock.Anything, eggs).Return([]byte("eggs-keytab"), nil)
	f.secrets.On("Keytab", mock.Anything, spam).Return([]byte("spam-keytab"), nil)
	f.remote.AcceptAll()

	require.NoError(t, UpdateKeygateway(t.Context(), f.env, f.queue))
	assert.Equal(t, []string{
		"upload keytab for eggs",
		"enable keygateway on eggs",
		"restart keygateway on eggs",
		"upload keytab for spam",
		"enable keygateway on spam",
		"restart keygateway on spam",
	}, f.queue.Names())

	require.NoError(t, f.queue.Run(t.Context()))
	f.remote.AssertNotCalled(t, "Output", mock.Anything, mock.Anything, mock.Anything)
	f.remote.AssertCalled(t, "UploadBytes", mock.Anything, eggs, []byte("eggs-keytab"), KeytabPath, fs.FileMode(0o600))
	f.remote.AssertCalled(t, "UploadBytes", mock.Anything, spam, []byte("spam-keytab"), KeytabPath, fs.FileMode(0o600))
}

func TestKeygateway_DecryptionFailsAtBuildTime(t *testing.T) {
	t.Parallel()
	f := newFixture(twoSupervisors())
	cause := errors.New("failed to decrypt")
	f.secrets.On("Keytab", mock.Anything, eggs).Return([]byte("eggs-keytab"), nil)
	f.secrets.On("Keytab", mock.Anything, spam).Return(nil, cause)

	err := UpdateKeygateway(t.Context(), f.env, f.queue)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 0, f.queue.Len())
}

func TestPreconditionMismatchError(t *testing.T) {
	t.Parallel()
	err := &PreconditionMismatchError{Host: "eggs", Path: KeytabPath}
	assert.Equal(t, "existing /etc/krb5.keytab on eggs does not match local copy", err.Error())
	assert.True(t, errors.Is(err, ErrPreconditionMismatch))
	assert.False(t, errors.Is(errors.New("other"), ErrPreconditionMismatch))
}

func TestExitCode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1, exitCode(missingFile("h")))
	assert.Equal(t, -1, exitCode(errors.New("plain")))
	assert.Equal(t, 1, exitCode(&ops.OperationError{Name: "x", Err: missingFile("h")}))
}
