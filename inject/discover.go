package inject

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/grovetools/recorder/errors"
	"github.com/moby/patternmatcher"
)

// DefaultPatterns select the usual Cypress spec files and skip dependency
// and build directories.
var DefaultPatterns = []string{
	"**/*.cy.js", "**/*.cy.jsx", "**/*.cy.ts", "**/*.cy.tsx",
	"**/*.spec.js", "**/*.spec.ts",
	"!node_modules", "!**/node_modules", "!.git", "!dist", "!build",
}

// Discover walks root and returns the files (relative to root) that match
// patterns and contain a call to anchorCall. Patterns follow .dockerignore
// syntax; a leading "!" excludes.
func (in *Injector) Discover(ctx context.Context, root string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	pm, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, errors.InvalidInput("invalid discovery pattern: " + err.Error())
	}

	needle := []byte(lastSegment(in.opts.AnchorCall) + "(")
	var found []string

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return nil
		}
		if d.IsDir() {
			if excluded(pm, rel) {
				return filepath.SkipDir
			}
			return nil
		}

		match, err := pm.MatchesOrParentMatches(rel)
		if err != nil || !match {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > in.opts.MaxFileSize {
			return nil
		}
		src, err := os.ReadFile(path)
		if err != nil || !bytes.Contains(src, needle) {
			return nil
		}

		tree, err := parse(ctx, LanguageFor(path), src)
		if err != nil {
			return nil
		}
		defer tree.Close()
		if _, ok := FindAnchor(tree.root(), src, in.opts.AnchorCall); ok {
			found = append(found, rel)
		}
		return nil
	})
	if err != nil {
		return found, err
	}

	in.logger.WithField("count", len(found)).Debug("Discovered anchor files")
	return found, nil
}

// excluded reports whether a directory is ruled out by an exclusion
// pattern, so the walk can skip it entirely.
func excluded(pm *patternmatcher.PatternMatcher, rel string) bool {
	if !pm.Exclusions() {
		return false
	}
	for _, p := range pm.Patterns() {
		if !p.Exclusion() {
			continue
		}
		if ok, err := p.Match(rel); err == nil && ok {
			return true
		}
	}
	return false
}

// Locate parses path and reports where its anchor call is.
func (in *Injector) Locate(ctx context.Context, path string) (*AnchorInfo, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound(path)
		}
		return nil, errors.FileNotReadable(path, err)
	}
	tree, err := parse(ctx, LanguageFor(path), src)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeParseError, "parse error in "+path)
	}
	defer tree.Close()
	anchor, ok := FindAnchor(tree.root(), src, in.opts.AnchorCall)
	if !ok {
		return nil, errors.AnchorNotFound(path, in.opts.AnchorCall)
	}
	return anchor.Info(), nil
}
