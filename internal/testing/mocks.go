package testing

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/stretchr/testify/mock"

	"github.com/imamik/spire/internal/config"
	"github.com/imamik/spire/internal/secrets"
)

// MockRemote is a mock implementation of the remote execution backend.
type MockRemote struct {
	mock.Mock
}

// NewMockRemote creates a MockRemote with no expectations.
func NewMockRemote() *MockRemote {
	return &MockRemote{}
}

// AcceptAll makes every Run, UploadBytes and UploadFile call succeed.
// Output is left to the test.
func (m *MockRemote) AcceptAll() {
	m.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("UploadBytes", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("UploadFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
}

// Run executes a mock command.
func (m *MockRemote) Run(ctx context.Context, node config.Node, command string) error {
	args := m.Called(ctx, node, command)
	return args.Error(0)
}

// Output returns mock command output.
func (m *MockRemote) Output(ctx context.Context, node config.Node, command string) ([]byte, error) {
	args := m.Called(ctx, node, command)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// UploadBytes records a mock upload.
func (m *MockRemote) UploadBytes(ctx context.Context, node config.Node, data []byte, dest string, perm fs.FileMode) error {
	args := m.Called(ctx, node, data, dest, perm)
	return args.Error(0)
}

// UploadFile records a mock file copy.
func (m *MockRemote) UploadFile(ctx context.Context, node config.Node, src, dest string) error {
	args := m.Called(ctx, node, src, dest)
	return args.Error(0)
}

// Transcript returns the calls made so far, one line per call, in order:
// "host: command" for Run and Output, "host: upload dest" for uploads.
func (m *MockRemote) Transcript() []string {
	var lines []string
	for _, call := range m.Calls {
		node := call.Arguments.Get(1).(config.Node)
		switch call.Method {
		case "Run", "Output":
			lines = append(lines, fmt.Sprintf("%s: %s", node.Hostname, call.Arguments.String(2)))
		case "UploadBytes":
			lines = append(lines, fmt.Sprintf("%s: upload %s", node.Hostname, call.Arguments.String(3)))
		case "UploadFile":
			lines = append(lines, fmt.Sprintf("%s: upload %s", node.Hostname, call.Arguments.String(3)))
		}
	}
	return lines
}

// MockSecrets is a mock implementation of the secret source.
type MockSecrets struct {
	mock.Mock
}

// Keytab returns a mock keytab.
func (m *MockSecrets) Keytab(ctx context.Context, node config.Node) ([]byte, error) {
	args := m.Called(ctx, node)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// Authorities returns mock authorities.
func (m *MockSecrets) Authorities(ctx context.Context) ([]secrets.Authority, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]secrets.Authority), args.Error(1)
}

// MockResources is a mock implementation of the resource source.
type MockResources struct {
	mock.Mock
}

// Get returns a mock resource.
func (m *MockResources) Get(name string) ([]byte, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
