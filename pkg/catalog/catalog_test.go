package catalog

import (
	"context"
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	refloader "github.com/goliatone/go-refmap/internal/mapping/loader"
	refparser "github.com/goliatone/go-refmap/internal/mapping/parser"
	"github.com/goliatone/go-refmap/pkg/mapping"
)

const pmapFixture = `header = {
    'derived_from' : 'generated from scratch 2013-07-11',
    'mapping' : 'PIPELINE',
    'name' : 'hst_0001.pmap',
    'observatory' : 'HST',
    'parkey' : ('INSTRUME',),
    'sha1sum' : 'x',
}

selector = {
    'acs' : 'hst_acs_0001.imap',
    'cos' : 'N/A',
}
`

const imapFixture = `header = {
    'derived_from' : 'generated from scratch 2013-07-11',
    'instrument' : 'ACS',
    'mapping' : 'INSTRUMENT',
    'name' : 'hst_acs_0001.imap',
    'observatory' : 'HST',
    'parkey' : ('REFTYPE',),
    'sha1sum' : 'x',
}

selector = {
    'darkfile' : 'hst_acs_darkfile_0001.rmap',
    'biasfile' : 'OMIT',
    'pfltfile' : 'N/A',
}
`

const rmapFixtureV1 = `header = {
    'derived_from' : 'hst_acs_darkfile_0000.rmap',
    'filekind' : 'DARKFILE',
    'instrument' : 'ACS',
    'mapping' : 'REFERENCE',
    'name' : 'hst_acs_darkfile_0001.rmap',
    'observatory' : 'HST',
    'parkey' : (('DETECTOR',), ('DATE-OBS', 'TIME-OBS')),
    'sha1sum' : 'x',
}

selector = Match({
    ('HRC',) : UseAfter({
        '1992-01-02 00:00:00' : 'old_dark.fits',
        '2004-06-18 00:00:00' : 'new_dark.fits',
    }),
})
`

const rmapFixtureV0 = `header = {
    'derived_from' : 'generated from scratch 2013-07-11',
    'filekind' : 'DARKFILE',
    'instrument' : 'ACS',
    'mapping' : 'REFERENCE',
    'name' : 'hst_acs_darkfile_0000.rmap',
    'observatory' : 'HST',
    'parkey' : (('DETECTOR',), ('DATE-OBS', 'TIME-OBS')),
    'sha1sum' : 'x',
}

selector = Match({
    ('HRC',) : UseAfter({
        '1992-01-02 00:00:00' : 'old_dark.fits',
    }),
})
`

// fsLocator serves fixture mappings and references straight out of an
// in-memory filesystem.
type fsLocator struct {
	files fstest.MapFS
}

func (l *fsLocator) LocateMapping(basename string) (mapping.Source, error) {
	if _, ok := l.files[basename]; !ok {
		return nil, fmt.Errorf("no such mapping %q", basename)
	}
	return mapping.SourceFromFS(basename), nil
}

func (l *fsLocator) LocateReference(basename string) (mapping.Source, error) {
	if _, ok := l.files[basename]; !ok {
		return nil, fmt.Errorf("no such reference %q", basename)
	}
	return mapping.SourceFromFS(basename), nil
}

func fixtureFiles() fstest.MapFS {
	return fstest.MapFS{
		"hst_0001.pmap":              &fstest.MapFile{Data: []byte(pmapFixture)},
		"hst_acs_0001.imap":          &fstest.MapFile{Data: []byte(imapFixture)},
		"hst_acs_darkfile_0001.rmap": &fstest.MapFile{Data: []byte(rmapFixtureV1)},
		"hst_acs_darkfile_0000.rmap": &fstest.MapFile{Data: []byte(rmapFixtureV0)},
		"old_dark.fits":              &fstest.MapFile{Data: []byte("dummy reference payload")},
	}
}

func newTestCatalog(t *testing.T, files fstest.MapFS) *Catalog {
	t.Helper()
	loader := refloader.New(mapping.NewLoaderOptions(mapping.WithFileSystem(files)))
	parser := refparser.New(mapping.NewParserOptions(mapping.WithChecksumMode(mapping.ChecksumIgnore)))
	cat, err := New(loader, parser, &fsLocator{files: files})
	require.NoError(t, err)
	return cat
}

func TestLoadResolvesClosure(t *testing.T) {
	t.Parallel()

	cat := newTestCatalog(t, fixtureFiles())
	loaded, err := cat.Load(context.Background(), "hst_0001.pmap")
	require.NoError(t, err)

	assert.Equal(t, []string{"hst_0001.pmap", "hst_acs_0001.imap", "hst_acs_darkfile_0001.rmap"},
		loaded.MappingNames())
	assert.Equal(t, []string{"new_dark.fits", "old_dark.fits"}, loaded.ReferenceNames())

	again, err := cat.Load(context.Background(), "hst_0001.pmap")
	require.NoError(t, err)
	assert.Same(t, loaded, again, "closures are cached")
}

func TestLoadPipelineRejectsOtherKinds(t *testing.T) {
	t.Parallel()

	cat := newTestCatalog(t, fixtureFiles())
	_, err := cat.LoadPipeline(context.Background(), "hst_acs_0001.imap")
	assert.Error(t, err)
}

func TestBestRefsHonorsSpecialSelections(t *testing.T) {
	t.Parallel()

	cat := newTestCatalog(t, fixtureFiles())
	refs, err := cat.BestRefs(context.Background(), "hst_0001.pmap", map[string]string{
		"INSTRUME": "ACS",
		"DETECTOR": "HRC",
		"DATE-OBS": "2005-01-01",
		"TIME-OBS": "00:00:00",
	})
	require.NoError(t, err)

	assert.Equal(t, "new_dark.fits", refs["darkfile"])
	assert.Equal(t, NotApplicable, refs["pfltfile"])
	_, omitted := refs["biasfile"]
	assert.False(t, omitted, "omitted types produce no entry")
	assert.NotContains(t, refs, "DARKFILE", "result keys are lowercase filekinds")
}

func TestBestRefsAggregatesFailures(t *testing.T) {
	t.Parallel()

	cat := newTestCatalog(t, fixtureFiles())
	refs, err := cat.BestRefs(context.Background(), "hst_0001.pmap", map[string]string{
		"INSTRUME": "ACS",
		"DETECTOR": "WFC",
		"DATE-OBS": "2005-01-01",
		"TIME-OBS": "00:00:00",
	})
	require.Error(t, err)
	assert.NotContains(t, refs, "darkfile")
	assert.Equal(t, NotApplicable, refs["pfltfile"])
}

func TestMissingMappings(t *testing.T) {
	t.Parallel()

	files := fixtureFiles()
	delete(files, "hst_acs_darkfile_0001.rmap")
	cat := newTestCatalog(t, files)

	missing, err := cat.MissingMappings(context.Background(), "hst_0001.pmap")
	require.NoError(t, err)
	assert.Equal(t, []string{"hst_acs_darkfile_0001.rmap"}, missing)
}

func TestMissingReferences(t *testing.T) {
	t.Parallel()

	cat := newTestCatalog(t, fixtureFiles())
	missing, err := cat.MissingReferences(context.Background(), "hst_0001.pmap")
	require.NoError(t, err)
	assert.Equal(t, []string{"new_dark.fits"}, missing)
}

func TestDeriveBumpsVersionAndProvenance(t *testing.T) {
	t.Parallel()

	cat := newTestCatalog(t, fixtureFiles())
	derived, text, err := cat.Derive(context.Background(), "hst_acs_darkfile_0001.rmap")
	require.NoError(t, err)

	assert.Equal(t, "hst_acs_darkfile_0002.rmap", derived.Basename())
	assert.Equal(t, "hst_acs_darkfile_0001.rmap", derived.Header().DerivedFrom)
	assert.NoError(t, mapping.VerifyTextChecksum(string(text), derived.Basename()))
}

func TestInsertReferenceDerivesNewVersion(t *testing.T) {
	t.Parallel()

	cat := newTestCatalog(t, fixtureFiles())
	derived, _, err := cat.InsertReference(context.Background(), "hst_acs_darkfile_0001.rmap",
		map[string]string{
			"DETECTOR": "HRC",
			"DATE-OBS": "2010-01-01",
			"TIME-OBS": "00:00:00",
		}, "fresh_dark.fits")
	require.NoError(t, err)

	assert.Equal(t, "hst_acs_darkfile_0002.rmap", derived.Basename())
	assert.Contains(t, derived.ReferenceNames(), "fresh_dark.fits")
}

func TestDeleteReferenceDerivesNewVersion(t *testing.T) {
	t.Parallel()

	cat := newTestCatalog(t, fixtureFiles())
	derived, _, err := cat.DeleteReference(context.Background(), "hst_acs_darkfile_0001.rmap", "old_dark.fits")
	require.NoError(t, err)
	assert.NotContains(t, derived.ReferenceNames(), "old_dark.fits")

	_, _, err = cat.DeleteReference(context.Background(), "hst_acs_darkfile_0001.rmap", "never_there.fits")
	assert.Error(t, err)
}

func TestVerifyDerivation(t *testing.T) {
	t.Parallel()

	cat := newTestCatalog(t, fixtureFiles())
	assert.NoError(t, cat.VerifyDerivation(context.Background(), "hst_acs_darkfile_0001.rmap"))

	broken := fixtureFiles()
	delete(broken, "hst_acs_darkfile_0000.rmap")
	cat = newTestCatalog(t, broken)
	assert.Error(t, cat.VerifyDerivation(context.Background(), "hst_acs_darkfile_0001.rmap"))
}
