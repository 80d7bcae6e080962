package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/goliatone/go-refmap/pkg/mapping"
)

// NotApplicable is the bestrefs result for types the rules declare
// irrelevant to a dataset.
const NotApplicable = "N/A"

// BestRefs computes the reference basename per filekind for one dataset
// header under the pipeline context named pmapName. Types the rules map to
// N/A appear with the NotApplicable value, omitted types are absent, and
// every failed lookup is aggregated into the returned error alongside the
// partial result.
func (c *Catalog) BestRefs(ctx context.Context, pmapName string, header map[string]string) (map[string]string, error) {
	pmap, err := c.LoadPipeline(ctx, pmapName)
	if err != nil {
		return nil, err
	}
	instrument, err := pmap.Instrument(header)
	if err != nil {
		return nil, err
	}
	imap, err := pmap.Imap(instrument)
	if err != nil {
		if errors.Is(err, mapping.ErrIrrelevant) || errors.Is(err, mapping.ErrOmitted) {
			return map[string]string{}, nil
		}
		return nil, err
	}

	refs := map[string]string{}
	var failures *multierror.Error
	for _, filekind := range imap.Filekinds() {
		bestref, err := c.bestRefFor(imap, filekind, header)
		// Result keys are lowercase filekinds regardless of how the
		// context spells them.
		key := strings.ToLower(filekind)
		switch {
		case err == nil:
			refs[key] = bestref
		case errors.Is(err, mapping.ErrIrrelevant):
			refs[key] = NotApplicable
		case errors.Is(err, mapping.ErrOmitted):
			// omitted types produce no entry at all
		default:
			failures = multierror.Append(failures, fmt.Errorf("catalog: %s %s: %w", instrument, filekind, err))
		}
	}
	return refs, failures.ErrorOrNil()
}

func (c *Catalog) bestRefFor(imap *mapping.InstrumentContext, filekind string, header map[string]string) (string, error) {
	rmap, err := imap.Rmap(filekind)
	if err != nil {
		return "", err
	}
	return rmap.BestRef(mapping.MinimizeHeader(rmap, header))
}
