// Package inject splices generated statements into an existing test file
// right after an anchor call, such as cy.startRecording().
//
// The file is parsed with tree-sitter, the anchor is located by a pure
// traversal, and the new text is rebuilt from byte offsets so that every
// byte outside the insertion point is preserved. Nothing is written unless
// every step succeeds.
package inject

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grovetools/recorder/backup"
	"github.com/grovetools/recorder/config"
	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/logging"
	"github.com/grovetools/recorder/pkg/profiling"
	"github.com/sirupsen/logrus"
)

const defaultIndent = "  "

// Options configure an Injector.
type Options struct {
	AnchorCall  string
	MaxFileSize int64
	Verify      bool
}

// OptionsFrom extracts the injector options from the recorder options.
func OptionsFrom(o config.Options) Options {
	return Options{
		AnchorCall:  o.AnchorCall,
		MaxFileSize: o.MaxFileSize,
		Verify:      o.VerifyInjection,
	}
}

// Result reports an injection attempt. BackupPath is set whenever a backup
// was taken, including on failure, so the caller can restore.
type Result struct {
	Success      bool        `json:"success"`
	FilePath     string      `json:"filePath"`
	BackupPath   string      `json:"backupPath,omitempty"`
	OriginalSize int64       `json:"originalSize"`
	NewSize      int64       `json:"newSize"`
	Anchor       *AnchorInfo `json:"anchorInfo,omitempty"`
	Err          error       `json:"-"`
}

// Error returns the failure message, "" on success.
func (r *Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Injector performs anchor-based injection.
type Injector struct {
	opts    Options
	backups *backup.Manager
	logger  *logrus.Entry
}

// New creates an Injector. backups may be nil, which behaves like a
// disabled backup manager.
func New(opts Options, backups *backup.Manager) *Injector {
	if opts.AnchorCall == "" {
		opts.AnchorCall = config.Defaults().AnchorCall
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = config.Defaults().MaxFileSize
	}
	return &Injector{opts: opts, backups: backups, logger: logging.NewLogger("inject")}
}

// InjectAfterAnchor inserts code immediately after the statement holding the
// anchor call in path.
func (in *Injector) InjectAfterAnchor(ctx context.Context, path, code string) *Result {
	res := &Result{FilePath: path}
	fail := func(err error) *Result {
		res.Err = err
		in.logger.WithError(err).WithFields(logrus.Fields{
			"file":   path,
			"backup": res.BackupPath,
		}).Warn("Injection failed")
		return res
	}

	info, err := in.checkFile(path)
	if err != nil {
		return fail(err)
	}
	res.OriginalSize = info.Size()

	src, err := os.ReadFile(path)
	if err != nil {
		return fail(errors.FileNotReadable(path, err))
	}

	if in.backups != nil {
		created, err := in.backups.Create(path)
		if err != nil {
			return fail(err)
		}
		res.BackupPath = created.BackupPath()
	}

	lang := LanguageFor(path)
	span := profiling.Start("parse")
	tree, err := parse(ctx, lang, src)
	span.Stop()
	if err != nil {
		return fail(errors.Wrap(err, errors.ErrCodeParseError, fmt.Sprintf("parse error in %s", path)))
	}
	defer tree.Close()
	if line, col, bad := firstError(tree.root()); bad {
		return fail(errors.ParseError(path, line, col))
	}

	anchor, ok := FindAnchor(tree.root(), src, in.opts.AnchorCall)
	if !ok {
		return fail(errors.AnchorNotFound(path, in.opts.AnchorCall))
	}
	res.Anchor = anchor.Info()

	fragment := strings.TrimSpace(code)
	if fragment == "" {
		return fail(errors.InvalidInput("no code to inject"))
	}
	frag, err := parse(ctx, lang, []byte(fragment))
	if err != nil {
		return fail(errors.Wrap(err, errors.ErrCodeInjectParseError, "parse error in code to inject"))
	}
	defer frag.Close()
	if line, col, bad := firstError(frag.root()); bad {
		return fail(errors.InjectParseError(line, col))
	}

	out := splice(src, anchor, fragment)

	if in.opts.Verify {
		if err := in.verify(ctx, lang, path, out, callNames(frag.root(), frag.src)); err != nil {
			return fail(err)
		}
	}

	if err := writeAtomic(path, out, info.Mode().Perm()); err != nil {
		return fail(err)
	}

	res.Success = true
	res.NewSize = int64(len(out))
	in.logger.WithFields(logrus.Fields{
		"file":   path,
		"anchor": anchor.Name,
		"line":   res.Anchor.Line,
		"bytes":  res.NewSize - res.OriginalSize,
	}).Info("Injected code")
	return res
}

// checkFile enforces the preconditions: exists, regular, within the size
// limit, readable and writable.
func (in *Injector) checkFile(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound(path)
		}
		return nil, errors.FileNotReadable(path, err)
	}
	if info.IsDir() {
		return nil, errors.InvalidInput(fmt.Sprintf("%s is a directory", path)).WithDetail("path", path)
	}
	if info.Size() > in.opts.MaxFileSize {
		return nil, errors.FileTooLarge(path, info.Size(), in.opts.MaxFileSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.FileNotReadable(path, err)
	}
	f.Close()

	f, err = os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, errors.FileNotWritable(path, err)
	}
	f.Close()
	return info, nil
}

// verify re-parses the output and checks the anchor and every injected call
// name survived.
func (in *Injector) verify(ctx context.Context, lang Language, path string, out []byte, names []string) error {
	defer profiling.Start("verify").Stop()
	tree, err := parse(ctx, lang, out)
	if err != nil {
		return errors.VerificationFailed(path, err.Error())
	}
	defer tree.Close()

	if line, col, bad := firstError(tree.root()); bad {
		return errors.VerificationFailed(path, fmt.Sprintf("result does not parse at line %d, column %d", line, col))
	}
	if _, ok := FindAnchor(tree.root(), out, in.opts.AnchorCall); !ok {
		return errors.VerificationFailed(path, "anchor call missing from result")
	}
	present := map[string]bool{}
	for _, n := range callNames(tree.root(), out) {
		present[n] = true
	}
	for _, n := range names {
		if !present[n] {
			return errors.VerificationFailed(path, fmt.Sprintf("call %s() missing from result", n))
		}
	}
	return nil
}

// splice rebuilds the source with fragment inserted after the anchor
// statement. The insertion point is the end of the anchor's line when only
// whitespace or a line comment follows the statement.
func splice(src []byte, a *Anchor, fragment string) []byte {
	end := int(a.Statement.EndByte())
	insertAt := end
	lineEnd := bytes.IndexByte(src[end:], '\n')
	if lineEnd < 0 {
		lineEnd = len(src)
	} else {
		lineEnd += end
	}
	rest := strings.TrimSpace(string(src[end:lineEnd]))
	if rest == "" || strings.HasPrefix(rest, "//") {
		insertAt = lineEnd
	}

	indent, nested := lineIndent(src, int(a.Statement.StartByte()))

	var b bytes.Buffer
	b.Grow(len(src) + len(fragment) + 64)
	b.Write(src[:insertAt])
	for _, line := range strings.Split(fragment, "\n") {
		b.WriteByte('\n')
		line = strings.TrimRight(line, " \t\r")
		if line != "" {
			b.WriteString(indent)
			b.WriteString(line)
		}
	}
	if insertAt == end && insertAt < len(src) {
		// statement shares its line with following code; that code stays at
		// the anchor's level unless the anchor sat inside a one-line block
		b.WriteByte('\n')
		if nested {
			b.WriteString(strings.TrimSuffix(indent, defaultIndent))
		} else {
			b.WriteString(indent)
		}
		b.Write(bytes.TrimLeft(src[insertAt:], " \t"))
	} else {
		b.Write(src[insertAt:])
	}
	return b.Bytes()
}

// lineIndent returns the indentation for statements at offset. When other
// code precedes the statement on its line, one extra level is added to the
// line's own indentation and nested is true.
func lineIndent(src []byte, offset int) (indent string, nested bool) {
	start := bytes.LastIndexByte(src[:offset], '\n') + 1
	prefix := src[start:offset]
	trimmed := bytes.TrimLeft(prefix, " \t")
	lead := string(prefix[:len(prefix)-len(trimmed)])
	if len(trimmed) > 0 {
		return lead + defaultIndent, true
	}
	return lead, false
}

// writeAtomic replaces path through a temporary file in the same directory.
func writeAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.FileNotWritable(path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return errors.FileNotWritable(path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		cleanup()
		return errors.FileNotWritable(path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.FileNotWritable(path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return errors.FileNotWritable(path, err)
	}
	return nil
}

// RestoreFromBackup overwrites path with the bytes of backupPath.
func RestoreFromBackup(path, backupPath string) error {
	return backup.RestoreFrom(path, backupPath)
}

// CleanupBackup deletes backupPath if present.
func CleanupBackup(backupPath string) error {
	return backup.Remove(backupPath)
}
