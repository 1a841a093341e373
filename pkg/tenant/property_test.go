package tenant

import (
	"os"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var validNameFirst = gen.AlphaString().SuchThat(func(s string) bool { return s != "" })

// TestPropertyEnsureDatabaseIsIdempotent: calling EnsureDatabase any
// number of times for the same (user, db) produces the same directory
// layout as calling it once, and never errors on the repeat calls.
func TestPropertyEnsureDatabaseIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("repeated EnsureDatabase calls are a no-op after the first", prop.ForAll(
		func(user, db string, n int) bool {
			if n < 1 || n > 5 {
				return true
			}
			root := t.TempDir()
			for i := 0; i < n; i++ {
				if err := EnsureDatabase(root, user, db); err != nil {
					return false
				}
			}
			l := Layout{Root: root, User: user, Database: db}
			for _, dir := range []string{l.DataDir(), l.WalDir(), l.LogsDir()} {
				info, err := os.Stat(dir)
				if err != nil || !info.IsDir() {
					return false
				}
			}
			return true
		},
		validNameFirst,
		validNameFirst,
		gen.IntRange(1, 5),
	))

	properties.Property("repeated EnsureCollection calls leave a single empty container file", prop.ForAll(
		func(user, db, coll string, n int) bool {
			if n < 1 || n > 5 {
				return true
			}
			root := t.TempDir()
			for i := 0; i < n; i++ {
				if err := EnsureCollection(root, user, db, coll); err != nil {
					return false
				}
			}
			path := Layout{Root: root, User: user, Database: db}.ContainerPath(coll)
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				return false
			}
			return info.Size() == 0
		},
		validNameFirst,
		validNameFirst,
		validNameFirst,
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}
