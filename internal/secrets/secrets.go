// Package secrets loads and decrypts cluster secrets.
//
// Secrets are age-encrypted files kept either in the project directory or
// in object storage (s3:// locations). They are decrypted into memory with
// the identities from the configured age identity file and never written
// to local disk.
package secrets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"

	"github.com/imamik/spire/internal/config"
	"github.com/imamik/spire/internal/platform/s3"
)

// EncryptedSuffix is trimmed from authority file names before upload.
const EncryptedSuffix = ".age"

// ErrNoIdentities is returned when the identity file holds no age identities.
var ErrNoIdentities = errors.New("no age identities found")

// ObjectStore fetches objects from s3:// locations.
type ObjectStore interface {
	Get(ctx context.Context, loc s3.Location) ([]byte, error)
	List(ctx context.Context, loc s3.Location) ([]string, error)
}

// Authority is one decrypted keyserver authority.
type Authority struct {
	Name string
	Data []byte
}

// Store decrypts secrets referenced by the cluster configuration.
type Store struct {
	cfg        *config.Config
	objects    ObjectStore
	identities []age.Identity
}

// NewStore creates a store. objects may be nil when no location in the
// configuration uses object storage. The identity file is read on first use,
// so procedures that need no secrets work without one.
func NewStore(cfg *config.Config, objects ObjectStore) *Store {
	return &Store{cfg: cfg, objects: objects}
}

// WithIdentities returns a store that decrypts with the given identities
// instead of reading the identity file.
func (s *Store) WithIdentities(identities ...age.Identity) *Store {
	c := *s
	c.identities = identities
	return &c
}

// Keytab returns the decrypted Kerberos keytab for node.
func (s *Store) Keytab(ctx context.Context, node config.Node) ([]byte, error) {
	location := s.cfg.KeytabLocation(node)
	data, err := s.decryptLocation(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to load keytab for %s: %w", node.Hostname, err)
	}
	return data, nil
}

// Authorities returns every decrypted authority, sorted by name.
//
// Names are the file names relative to the authorities location with the
// encrypted suffix removed. Nested object keys keep their slashes; callers
// decide whether such names are acceptable.
func (s *Store) Authorities(ctx context.Context) ([]Authority, error) {
	location := s.cfg.Resolve(s.cfg.Secrets.Authorities)

	names, err := s.list(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to list authorities: %w", err)
	}
	sort.Strings(names)

	authorities := make([]Authority, 0, len(names))
	for _, name := range names {
		data, err := s.decryptLocation(ctx, join(location, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load authority %s: %w", name, err)
		}
		authorities = append(authorities, Authority{
			Name: strings.TrimSuffix(name, EncryptedSuffix),
			Data: data,
		})
	}
	return authorities, nil
}

// Decrypt decrypts an age ciphertext, armored or binary.
func (s *Store) Decrypt(ciphertext []byte) ([]byte, error) {
	identities, err := s.loadIdentities()
	if err != nil {
		return nil, err
	}

	var src io.Reader = bytes.NewReader(ciphertext)
	if bytes.HasPrefix(bytes.TrimSpace(ciphertext), []byte(armor.Header)) {
		src = armor.NewReader(bytes.NewReader(ciphertext))
	}

	r, err := age.Decrypt(src, identities...)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read decrypted data: %w", err)
	}
	return plaintext, nil
}

func (s *Store) decryptLocation(ctx context.Context, location string) ([]byte, error) {
	ciphertext, err := s.read(ctx, location)
	if err != nil {
		return nil, err
	}
	return s.Decrypt(ciphertext)
}

func (s *Store) loadIdentities() ([]age.Identity, error) {
	if s.identities != nil {
		return s.identities, nil
	}

	path := s.cfg.Resolve(s.cfg.Secrets.AgeIdentity)
	// #nosec G304
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open age identity file: %w", err)
	}
	defer func() { _ = f.Close() }()

	identities, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse age identity file %s: %w", path, err)
	}
	if len(identities) == 0 {
		return nil, ErrNoIdentities
	}
	s.identities = identities
	return identities, nil
}

func (s *Store) read(ctx context.Context, location string) ([]byte, error) {
	if s3.IsLocation(location) {
		loc, err := s.objectLocation(location)
		if err != nil {
			return nil, err
		}
		return s.objects.Get(ctx, loc)
	}
	// #nosec G304
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", location, err)
	}
	return data, nil
}

func (s *Store) list(ctx context.Context, location string) ([]string, error) {
	if s3.IsLocation(location) {
		loc, err := s.objectLocation(location)
		if err != nil {
			return nil, err
		}
		return s.objects.List(ctx, loc)
	}

	entries, err := os.ReadDir(location)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", location, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (s *Store) objectLocation(location string) (s3.Location, error) {
	if s.objects == nil {
		return s3.Location{}, fmt.Errorf("%s requires object storage, but no S3 client is configured", location)
	}
	return s3.ParseLocation(location)
}

func join(location, name string) string {
	if s3.IsLocation(location) {
		return strings.TrimSuffix(location, "/") + "/" + name
	}
	return filepath.Join(location, name)
}
