// Package identity maps Rails source paths to their mirrored RSpec paths and
// derives the names a spec uses to refer to the code under test.
//
// The mapping is purely textual:
//
//	app/services/billing.rb            -> spec/services/billing_spec.rb
//	app/controllers/api/users_controller.rb
//	                                   -> RSpec.describe Api::UsersController, type: :controller do
package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/errors"
)

// Kind is the Rails role of a source file.
type Kind string

const (
	KindController Kind = "controller"
	KindModel      Kind = "model"
	KindService    Kind = "service"
	KindNone       Kind = ""
)

// roleMarkers is checked in order; the first marker found in the path wins.
var roleMarkers = []struct {
	marker string
	kind   Kind
}{
	{"/controllers/", KindController},
	{"/models/", KindModel},
	{"/services/", KindService},
}

// namespacePrefixes duplicate the role directory and are dropped from titles.
var namespacePrefixes = []string{"Controllers::", "Models::", "Services::"}

// SelectorPrefixes are the describe-argument prefixes that refer to a method.
var SelectorPrefixes = []string{"#", ".", "POST ", "GET ", "PUT ", "PATCH ", "DELETE "}

// SourceUnit is a source file read once per invocation.
type SourceUnit struct {
	Path string
	Text string
	Kind Kind
}

// Resolver maps between the source tree and the spec tree.
type Resolver struct {
	SourceDir string // "app"
	SpecDir   string // "spec"
}

// Default uses the Rails layout.
var Default = &Resolver{SourceDir: "app", SpecDir: "spec"}

// New returns a resolver for the given tree names. Empty names fall back to
// the Rails defaults.
func New(sourceDir, specDir string) *Resolver {
	r := &Resolver{SourceDir: sourceDir, SpecDir: specDir}
	if r.SourceDir == "" {
		r.SourceDir = Default.SourceDir
	}
	if r.SpecDir == "" {
		r.SpecDir = Default.SpecDir
	}
	return r
}

// ResolveTestPath returns the spec path mirroring sourcePath.
func ResolveTestPath(sourcePath string) (string, error) {
	return Default.ResolveTestPath(sourcePath)
}

// ResolveSourcePath returns the source path mirrored by testPath.
func ResolveSourcePath(testPath string) (string, error) {
	return Default.ResolveSourcePath(testPath)
}

// DeriveTitle returns the outer describe line for sourcePath.
func DeriveTitle(sourcePath string) (string, error) {
	return Default.DeriveTitle(sourcePath)
}

// ResolveTestPath replaces the last source-tree segment with the spec tree and
// the .rb suffix with _spec.rb.
func (r *Resolver) ResolveTestPath(sourcePath string) (string, error) {
	root, rel, ok := splitTree(sourcePath, r.SourceDir)
	if !ok {
		return "", errors.ResolutionError(errors.ErrCodeNotUnderApp,
			fmt.Sprintf("%s is not under an %s/ directory", sourcePath, r.SourceDir)).
			WithDetail("path", sourcePath).
			WithSuggestion(fmt.Sprintf("Only files inside %s/ have a mirrored spec", r.SourceDir))
	}
	rel = strings.TrimSuffix(rel, ".rb") + "_spec.rb"
	return filepath.FromSlash(root + r.SpecDir + "/" + rel), nil
}

// ResolveSourcePath is the inverse of ResolveTestPath.
func (r *Resolver) ResolveSourcePath(testPath string) (string, error) {
	root, rel, ok := splitTree(testPath, r.SpecDir)
	if !ok {
		return "", errors.ResolutionError(errors.ErrCodeNotUnderSpec,
			fmt.Sprintf("%s is not under a %s/ directory", testPath, r.SpecDir)).
			WithDetail("path", testPath)
	}
	rel = strings.TrimSuffix(rel, "_spec.rb") + ".rb"
	return filepath.FromSlash(root + r.SourceDir + "/" + rel), nil
}

// Relative returns sourcePath relative to the source tree, without .rb.
func (r *Resolver) Relative(sourcePath string) (string, bool) {
	_, rel, ok := splitTree(sourcePath, r.SourceDir)
	if !ok {
		return "", false
	}
	return strings.TrimSuffix(rel, ".rb"), true
}

// DeriveTitle converts the path below the source tree into a Ruby constant
// and wraps it in an RSpec.describe header. Unclassified files have no title.
func (r *Resolver) DeriveTitle(sourcePath string) (string, error) {
	kind := Classify(sourcePath)
	if kind == KindNone {
		return "", errors.ResolutionError(errors.ErrCodeUnclassifiedRole,
			fmt.Sprintf("%s is not a controller, model, or service", sourcePath)).
			WithDetail("path", sourcePath).
			WithSuggestion("Move the file under app/controllers, app/models, or app/services")
	}

	rel, ok := r.Relative(sourcePath)
	if !ok {
		return "", errors.ResolutionError(errors.ErrCodeNotUnderApp,
			fmt.Sprintf("%s is not under an %s/ directory", sourcePath, r.SourceDir)).
			WithDetail("path", sourcePath)
	}

	return fmt.Sprintf("RSpec.describe %s, type: :%s do", ClassName(rel), kind), nil
}

// Classify returns the role of sourcePath, or KindNone.
func Classify(sourcePath string) Kind {
	p := "/" + filepath.ToSlash(sourcePath)
	for _, m := range roleMarkers {
		if strings.Contains(p, m.marker) {
			return m.kind
		}
	}
	return KindNone
}

// ClassName camelizes a slash-separated relative path into a namespaced
// constant, dropping a leading role namespace.
func ClassName(rel string) string {
	segments := strings.Split(filepath.ToSlash(rel), "/")
	for i, seg := range segments {
		words := strings.Split(seg, "_")
		for j, w := range words {
			if w != "" {
				words[j] = strings.ToUpper(w[:1]) + w[1:]
			}
		}
		segments[i] = strings.Join(words, "")
	}

	name := strings.Join(segments, "::")
	for _, prefix := range namespacePrefixes {
		if strings.HasPrefix(name, prefix) {
			return strings.TrimPrefix(name, prefix)
		}
	}
	return name
}

// Identity normalizes a method name for matching.
func Identity(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Claimed normalizes a describe argument: a single selector prefix is
// removed and the rest is compared as an Identity.
func Claimed(arg string) string {
	arg = strings.TrimSpace(arg)
	for _, prefix := range SelectorPrefixes {
		if len(arg) > len(prefix) && strings.EqualFold(arg[:len(prefix)], prefix) {
			return Identity(arg[len(prefix):])
		}
	}
	return Identity(arg)
}

// ReadSource reads and classifies a source file.
func ReadSource(path string) (*SourceUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		code := errors.ErrCodeReadFailed
		if os.IsNotExist(err) {
			code = errors.ErrCodeFileNotFound
		} else if os.IsPermission(err) {
			code = errors.ErrCodeFilePermission
		}
		return nil, errors.IOError(code, fmt.Sprintf("failed to read %s", path), err).
			WithDetail("path", path)
	}
	return &SourceUnit{Path: path, Text: string(data), Kind: Classify(path)}, nil
}

// splitTree splits p at the last "/<tree>/" segment, or a leading "<tree>/".
// root keeps its trailing slash.
func splitTree(p, tree string) (root, rel string, ok bool) {
	p = filepath.ToSlash(p)
	if i := strings.LastIndex(p, "/"+tree+"/"); i >= 0 {
		return p[:i+1], p[i+len(tree)+2:], true
	}
	if strings.HasPrefix(p, tree+"/") {
		return "", p[len(tree)+1:], true
	}
	return "", "", false
}
