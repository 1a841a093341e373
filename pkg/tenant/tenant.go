// Package tenant manages the on-disk multi-tenant directory layout:
// `<root>/<user>/<db>/{data,wal,logs}` plus one `<collection>.lsm/`
// or `<collection>.bin` per collection. Every user, database, and
// collection name is validated before it is joined into a filesystem
// path.
package tenant

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/go-playground/validator/v10"
)

const (
	MinNameLength = 1
	MaxNameLength = 100
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

var validate = validator.New()

// Name is one user/database/collection path segment, validated before
// it is ever joined into a filesystem path.
type Name struct {
	Value string `validate:"required,min=1,max=100"`
}

// ErrInvalidName reports that a user/database/collection name failed
// validation.
var ErrInvalidName = fmt.Errorf("tenant: invalid name")

// ValidateName checks name against the length bound and character set
// every path segment must satisfy before use.
func ValidateName(name string) error {
	if err := validate.Struct(Name{Value: name}); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidName, name, err)
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("%w: %q: must be alphanumeric with hyphens/underscores", ErrInvalidName, name)
	}
	return nil
}

// Layout resolves the directory paths for one (user, database) pair
// under a configured data root.
type Layout struct {
	Root     string
	User     string
	Database string
}

func (l Layout) dbDir() string    { return filepath.Join(l.Root, l.User, l.Database) }
func (l Layout) DataDir() string  { return filepath.Join(l.dbDir(), "data") }
func (l Layout) WalDir() string   { return filepath.Join(l.dbDir(), "wal") }
func (l Layout) LogsDir() string  { return filepath.Join(l.dbDir(), "logs") }
func (l Layout) UserDir() string  { return filepath.Join(l.Root, l.User) }

// ContainerPath is the catalog-style container file for a collection,
// `<db>/data/<collection>.bin`.
func (l Layout) ContainerPath(collection string) string {
	return filepath.Join(l.DataDir(), collection+".bin")
}

// EnsureDatabase idempotently creates the directory layout required
// for a database: data/, wal/, logs/ under the user/database path.
// Calling it twice is indistinguishable from calling it once.
func EnsureDatabase(root, user, db string) error {
	if err := ValidateName(user); err != nil {
		return err
	}
	if err := ValidateName(db); err != nil {
		return err
	}
	l := Layout{Root: root, User: user, Database: db}
	for _, dir := range []string{l.DataDir(), l.WalDir(), l.LogsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("tenant: mkdir %s: %w", dir, err)
		}
	}
	return nil
}

// EnsureCollection idempotently creates an empty catalog-style
// container file for collection under user/db, if one doesn't already
// exist. LSM collections don't need this: their `<collection>.lsm/`
// directory is created lazily by pkg/lsm on first write.
func EnsureCollection(root, user, db, collection string) error {
	if err := EnsureDatabase(root, user, db); err != nil {
		return err
	}
	if err := ValidateName(collection); err != nil {
		return err
	}
	path := Layout{Root: root, User: user, Database: db}.ContainerPath(collection)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("tenant: stat %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("tenant: create %s: %w", path, err)
	}
	return f.Close()
}

// ListDatabases returns the names of every immediate subdirectory
// under the user's namespace. A missing user namespace yields an
// empty sequence, not an error.
func ListDatabases(root, user string) ([]string, error) {
	userDir := Layout{Root: root, User: user}.UserDir()
	entries, err := os.ReadDir(userDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tenant: readdir %s: %w", userDir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out, nil
}
