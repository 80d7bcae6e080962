package refmap

import (
	"github.com/hashicorp/go-hclog"

	internalLoader "github.com/goliatone/go-refmap/internal/mapping/loader"
	internalParser "github.com/goliatone/go-refmap/internal/mapping/parser"
	"github.com/goliatone/go-refmap/pkg/catalog"
	"github.com/goliatone/go-refmap/pkg/config"
	pkgmapping "github.com/goliatone/go-refmap/pkg/mapping"
)

// NewLoader constructs a loader using the internal implementation while
// keeping the concrete type hidden from consumers.
func NewLoader(options ...pkgmapping.LoaderOption) pkgmapping.Loader {
	cfg := pkgmapping.NewLoaderOptions(options...)
	return internalLoader.New(cfg)
}

// NewParser constructs a parser backed by the internal implementation.
func NewParser(options ...pkgmapping.ParserOption) pkgmapping.Parser {
	cfg := pkgmapping.NewParserOptions(options...)
	return internalParser.New(cfg)
}

// NewParserWithLogger is NewParser with checksum warnings and parse
// progress routed to logger.
func NewParserWithLogger(logger hclog.Logger, options ...pkgmapping.ParserOption) pkgmapping.Parser {
	cfg := pkgmapping.NewParserOptions(options...)
	return internalParser.NewWithLogger(cfg, logger)
}

// NewCatalog wires a catalog over the store layout described by cfg.
func NewCatalog(cfg config.Config, options ...catalog.Option) (*catalog.Catalog, error) {
	mode, err := cfg.ParserChecksumMode()
	if err != nil {
		return nil, err
	}
	loader := NewLoader(cfg.LoaderOptions()...)
	parser := NewParser(pkgmapping.WithChecksumMode(mode))
	return catalog.New(loader, parser, cfg.Locator(), options...)
}
