// Package depcrit runs the import pipeline for one JavaScript or TypeScript
// file: extract the specifiers, resolve each to a file, and classify each
// file into the criteria a build-graph generator uses to find its target.
package depcrit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/albertocavalcante/depcrit/internal/config"
	"github.com/albertocavalcante/depcrit/internal/criteria"
	"github.com/albertocavalcante/depcrit/internal/js/extract"
	"github.com/albertocavalcante/depcrit/internal/js/resolver"
	"github.com/albertocavalcante/depcrit/internal/js/tsconfig"
	"github.com/albertocavalcante/depcrit/internal/logging"
)

// Options configure a Pipeline.
type Options struct {
	// Root is the absolute repository root.
	Root string

	// Config supplies the layout, extensions and alias configuration path.
	// Defaults to config.DefaultConfig().
	Config *config.Config

	// TSConfig overrides Config's alias configuration path.
	TSConfig string

	// FS is probed by the resolver. Defaults to the host filesystem.
	FS resolver.FS

	Logger *zap.Logger
}

// Pipeline holds what one run needs: the alias rules and the repository
// root. Nothing in it changes while specifiers are processed.
type Pipeline struct {
	resolver   *resolver.Resolver
	classifier *criteria.Classifier
	log        *zap.Logger
}

// New loads the alias configuration and prepares a pipeline.
func New(opts Options) (*Pipeline, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	log := logging.OrNop(opts.Logger)

	tsPath := opts.TSConfig
	if tsPath == "" {
		tsPath = cfg.TSConfigPath(opts.Root)
	}
	aliases, err := tsconfig.Load(tsPath)
	if err != nil {
		return nil, err
	}
	log.Debug("loaded alias configuration",
		zap.String("path", aliases.Path),
		zap.String("baseUrl", aliases.BaseURL),
		zap.Int("paths", len(aliases.Paths)))

	r, err := resolver.New(resolver.Options{
		Extensions: cfg.Extensions,
		Aliases:    aliases,
		FS:         opts.FS,
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		resolver:   r,
		classifier: criteria.NewClassifier(opts.Root, cfg.Layout()),
		log:        log,
	}, nil
}

// Classifier returns the classifier the pipeline uses.
func (p *Pipeline) Classifier() *criteria.Classifier { return p.classifier }

// Run returns the criteria for every import of file. The first error aborts
// the run and no partial result is returned. A file whose imports all resolve
// into build output or to core modules yields an empty, non-nil slice.
func (p *Pipeline) Run(ctx context.Context, file string) ([]criteria.Criteria, error) {
	file, err := filepath.Abs(file)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}

	specs, err := extract.Extract(ctx, file, src)
	if err != nil {
		return nil, err
	}
	p.log.Debug("extracted imports", zap.String("file", file), zap.Strings("specifiers", specs))

	baseDir := filepath.Dir(file)
	result := make([]criteria.Criteria, 0, len(specs))
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resolved, err := p.resolver.Resolve(spec, baseDir)
		if errors.Is(err, resolver.ErrBuiltin) {
			p.log.Info("skipping core module", zap.String("specifier", spec))
			continue
		}
		if err != nil {
			return nil, err
		}

		res, err := p.classifier.Classify(spec, resolved)
		if err != nil {
			return nil, err
		}
		if res.Outcome == criteria.OutcomeBuildOutput {
			p.log.Info("skipping build output", zap.String("specifier", spec), zap.String("path", resolved))
			continue
		}
		p.log.Debug("classified", zap.String("specifier", spec), zap.Stringer("outcome", res.Outcome))
		result = append(result, res.Criteria)
	}
	return result, nil
}
