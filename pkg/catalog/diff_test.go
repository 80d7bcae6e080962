package catalog

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const imapFixtureEdited = `header = {
    'derived_from' : 'hst_acs_0001.imap',
    'instrument' : 'ACS',
    'mapping' : 'INSTRUMENT',
    'name' : 'hst_acs_0002.imap',
    'observatory' : 'HST',
    'parkey' : ('REFTYPE',),
    'sha1sum' : 'x',
}

selector = {
    'darkfile' : 'hst_acs_darkfile_0000.rmap',
    'biasfile' : 'OMIT',
}
`

func TestDiffEqualClosures(t *testing.T) {
	t.Parallel()

	cat := newTestCatalog(t, fixtureFiles())
	loaded, err := cat.Load(context.Background(), "hst_0001.pmap")
	require.NoError(t, err)

	assert.Empty(t, Diff(loaded, loaded))
}

func TestDiffReportsReferenceSetChanges(t *testing.T) {
	t.Parallel()

	cat := newTestCatalog(t, fixtureFiles())
	v0, err := cat.Load(context.Background(), "hst_acs_darkfile_0000.rmap")
	require.NoError(t, err)
	v1, err := cat.Load(context.Background(), "hst_acs_darkfile_0001.rmap")
	require.NoError(t, err)

	differences := Diff(v0, v1)
	require.Len(t, differences, 1)
	assert.Equal(t, DiffAdded, differences[0].Kind)
	assert.Equal(t, "new_dark.fits", differences[0].To)
	assert.Contains(t, differences[0].String(), "added new_dark.fits")
}

func TestDiffRecursesIntoReplacedSelections(t *testing.T) {
	t.Parallel()

	files := fixtureFiles()
	files["hst_acs_0002.imap"] = &fstest.MapFile{Data: []byte(imapFixtureEdited)}
	cat := newTestCatalog(t, files)

	before, err := cat.Load(context.Background(), "hst_acs_0001.imap")
	require.NoError(t, err)
	after, err := cat.Load(context.Background(), "hst_acs_0002.imap")
	require.NoError(t, err)

	differences := Diff(before, after)

	kinds := map[DiffKind]int{}
	for _, d := range differences {
		kinds[d.Kind]++
	}
	// darkfile replaced, new_dark.fits deleted inside the nested rmap pair,
	// and the pfltfile selection dropped entirely.
	assert.Equal(t, 1, kinds[DiffReplaced])
	assert.Equal(t, 2, kinds[DiffDeleted])
	assert.Len(t, differences, 3)
}
