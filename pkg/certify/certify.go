package certify

import (
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/goliatone/go-refmap/pkg/mapping"
	"github.com/goliatone/go-refmap/pkg/tpn"
)

// Certifier runs a validation template against reference headers and
// reference mappings, aggregating every failure instead of stopping at
// the first.
type Certifier struct {
	log hclog.Logger
}

// Option customizes a Certifier.
type Option func(*Certifier)

// WithLogger routes warnings and progress to log.
func WithLogger(log hclog.Logger) Option {
	return func(c *Certifier) {
		if log != nil {
			c.log = log
		}
	}
}

// NewCertifier builds a Certifier with the given options.
func NewCertifier(options ...Option) *Certifier {
	c := &Certifier{log: hclog.NewNullLogger()}
	for _, option := range options {
		option(c)
	}
	return c
}

// CertifyHeader checks header against every header level row of the
// template. Column and group rows describe tabular payloads this package
// does not load and are skipped.
func (c *Certifier) CertifyHeader(template tpn.Template, header map[string]string) error {
	var failures *multierror.Error
	for _, row := range template.Rows {
		if row.KeyType != tpn.KeyHeader {
			c.log.Debug("skipping non-header constraint", "template", template.Name, "field", row.Name, "keytype", row.KeyType)
			continue
		}
		if err := c.checkRow(row, header); err != nil {
			failures = multierror.Append(failures, err)
		}
	}
	return failures.ErrorOrNil()
}

// checkRow applies one row's presence rule and, when the value exists,
// its value constraint.
func (c *Certifier) checkRow(row tpn.Info, header map[string]string) error {
	value, defined := lookup(header, row.Name)
	switch row.Presence {
	case tpn.PresenceExcluded:
		if defined {
			return &IllegalKeywordError{Keyword: row.Name}
		}
		return nil
	case tpn.PresenceRequired, tpn.PresencePattern:
		if !defined {
			return &MissingKeywordError{Keyword: row.Name}
		}
	case tpn.PresenceWarn:
		if !defined {
			c.log.Warn("keyword is not defined", "field", row.Name)
			return nil
		}
	case tpn.PresenceOptional:
		if !defined {
			return nil
		}
	}
	validator, err := New(row)
	if err != nil {
		return err
	}
	return validator.CheckValue(value)
}

// CertifyMapping checks every rule key of a reference mapping against the
// template's closed enumerations. Range and symbolic rows impose no key
// constraint and so do not appear in the valid values map.
func (c *Certifier) CertifyMapping(rmap *mapping.ReferenceMapping, template tpn.Template) error {
	valid := template.ValidValuesMap(rmap.RequiredParkeys())
	constrained := map[string][]string{}
	for parkey, values := range valid {
		if values != nil {
			constrained[parkey] = values
		}
	}
	if err := rmap.ValidateSelector(constrained); err != nil {
		return err
	}
	c.log.Info("mapping rules certified", "mapping", rmap.Basename(), "template", template.Name)
	return nil
}

// lookup treats missing, empty and UNDEFINED values uniformly as absent.
func lookup(header map[string]string, name string) (string, bool) {
	value, ok := header[name]
	if !ok {
		return "", false
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || strings.EqualFold(trimmed, "UNDEFINED") {
		return "", false
	}
	return value, true
}
