package images

import (
	"go/build"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The geometry in this package is shared by the post-processing engine, which
// must build without cgo.
func TestPackageHasNoCgoImports(t *testing.T) {
	pkg, err := build.ImportDir(".", 0)
	require.NoError(t, err)

	assert.Empty(t, pkg.CgoFiles)
	for _, path := range pkg.Imports {
		for _, prefix := range []string{"gocv.io/", "github.com/chai2010/webp"} {
			assert.False(t, strings.HasPrefix(path, prefix), "images imports %s", path)
		}
	}
}
