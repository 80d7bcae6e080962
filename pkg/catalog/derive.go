package catalog

import (
	"context"
	"fmt"

	"github.com/goliatone/go-refmap/pkg/mapping"
)

// Derive produces the next version of the mapping named basename: the
// serial is bumped, derived_from is pointed at the precursor, and the
// sha1sum is refreshed. The derived file is reparsed before it is returned
// together with its rendered text, so the result is known good.
func (c *Catalog) Derive(ctx context.Context, basename string) (mapping.Mapping, []byte, error) {
	orig, err := c.loadOne(ctx, basename)
	if err != nil {
		return nil, nil, err
	}
	return c.versionUp(ctx, orig, basename)
}

// InsertReference derives a new rmap version with refname filed under the
// match parameters of refHeader.
func (c *Catalog) InsertReference(ctx context.Context, rmapName string, refHeader map[string]string, refname string) (mapping.Mapping, []byte, error) {
	rmap, err := c.loadRmap(ctx, rmapName)
	if err != nil {
		return nil, nil, err
	}
	updated, err := rmap.Insert(refHeader, refname)
	if err != nil {
		return nil, nil, err
	}
	return c.versionUp(ctx, updated, rmapName)
}

// DeleteReference derives a new rmap version with every rule selecting
// refname removed.
func (c *Catalog) DeleteReference(ctx context.Context, rmapName, refname string) (mapping.Mapping, []byte, error) {
	rmap, err := c.loadRmap(ctx, rmapName)
	if err != nil {
		return nil, nil, err
	}
	updated, err := rmap.DeleteReference(refname)
	if err != nil {
		return nil, nil, err
	}
	return c.versionUp(ctx, updated, rmapName)
}

func (c *Catalog) loadRmap(ctx context.Context, basename string) (*mapping.ReferenceMapping, error) {
	loaded, err := c.loadOne(ctx, basename)
	if err != nil {
		return nil, err
	}
	rmap, ok := loaded.(*mapping.ReferenceMapping)
	if !ok {
		return nil, fmt.Errorf("catalog: %q is a %s mapping, not a reference mapping", basename, loaded.Kind())
	}
	return rmap, nil
}

// versionUp rewrites the provenance keys of a freshly loaded mapping,
// renders it with a valid checksum, and reparses the text under the new
// name. The input must not come from the cache since its raw header is
// mutated in place.
func (c *Catalog) versionUp(ctx context.Context, m mapping.Mapping, precursor string) (mapping.Mapping, []byte, error) {
	next, err := mapping.NextVersionName(precursor)
	if err != nil {
		return nil, nil, err
	}
	raw := m.RawHeader()
	raw["derived_from"] = precursor
	raw["name"] = next
	text := []byte(mapping.FormatWithChecksum(m))

	doc, err := mapping.NewDocument(mapping.SourceFromFile(next), text)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: wrap derived %q: %w", next, err)
	}
	derived, err := c.parser.Parse(ctx, doc)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: derived %q does not parse: %w", next, err)
	}
	c.log.Info("derived new mapping version", "from", precursor, "to", next)
	return derived, text, nil
}

// VerifyDerivation walks the derived_from chain starting at basename back
// to its null derivation root, checking that each link names an available
// precursor of the same family with a strictly smaller version serial.
func (c *Catalog) VerifyDerivation(ctx context.Context, basename string) error {
	seen := map[string]bool{}
	current, err := c.loadOne(ctx, basename)
	if err != nil {
		return err
	}
	for current.Header().HasDerivation() {
		child := current.Basename()
		parent := current.Header().DerivedFrom
		if seen[child] {
			return fmt.Errorf("catalog: derivation of %q is cyclic at %q", basename, child)
		}
		seen[child] = true

		if err := checkLineage(child, parent); err != nil {
			return err
		}
		current, err = c.loadOne(ctx, parent)
		if err != nil {
			return fmt.Errorf("catalog: derivation of %q is broken, precursor %q of %q is unavailable: %w",
				basename, parent, child, err)
		}
	}
	c.log.Debug("derivation chain verified", "mapping", basename, "root", current.Basename())
	return nil
}

// checkLineage verifies parent is a plausible precursor of child: same
// versioned family and a strictly smaller serial.
func checkLineage(child, parent string) error {
	childStem, childSerial, childExt, childOK := mapping.NameVersion(child)
	parentStem, parentSerial, parentExt, parentOK := mapping.NameVersion(parent)
	if !childOK || !parentOK {
		// unversioned names such as hst.pmap carry no serial to compare
		return nil
	}
	if childStem != parentStem || childExt != parentExt {
		return fmt.Errorf("catalog: %q is derived from %q of a different mapping family", child, parent)
	}
	if parentSerial >= childSerial {
		return fmt.Errorf("catalog: %q version does not advance on its precursor %q", child, parent)
	}
	return nil
}
