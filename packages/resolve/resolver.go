// Package resolve rewrites short test-name fragments into fully qualified
// dotted test identifiers by scanning the test source tree.
package resolve

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Resolver resolves positional test-name arguments against a set of test
// source roots. Matching is heuristic: the first hit in directory-walk order
// wins, and an argument with no match is passed through unchanged.
type Resolver struct {
	roots  []string
	prefix string
}

// NewResolver creates a Resolver over the given test roots. prefix is the
// recognized test-file prefix, e.g. "test_".
func NewResolver(roots []string, prefix string) *Resolver {
	return &Resolver{roots: roots, prefix: prefix}
}

// ResolveAll resolves every argument in order.
func (r *Resolver) ResolveAll(args []string) []string {
	resolved := make([]string, len(args))
	for i, arg := range args {
		resolved[i] = r.Resolve(arg)
	}
	return resolved
}

// Resolve rewrites a single argument into a fully qualified identifier where
// the heuristic finds a match.
func (r *Resolver) Resolve(arg string) string {
	arg = Normalize(arg)

	if class, method, ok := splitClassMethod(arg); ok {
		if module, found := r.findClass(class); found {
			return module + "." + class + "." + method
		}
		return arg
	}

	if isClassName(arg) {
		if module, found := r.findClass(arg); found {
			return module + "." + arg
		}
		return arg
	}

	if !strings.Contains(arg, ".") && strings.HasPrefix(arg, r.prefix) {
		if path, found := r.findFile(arg + ".py"); found {
			return ModulePath(path)
		}
	}

	return arg
}

// Normalize converts path-style arguments into dotted notation: trailing
// slashes and a trailing .py suffix are stripped, separators become dots.
func Normalize(arg string) string {
	arg = strings.TrimSuffix(arg, "/")
	arg = strings.TrimSuffix(arg, ".py")
	arg = strings.ReplaceAll(arg, "/", ".")
	return arg
}

// ModulePath converts a file path under the tree into its dotted module
// path.
func ModulePath(path string) string {
	return Normalize(filepath.ToSlash(path))
}

// splitClassMethod recognizes arguments of the form Foo.test_bar.
func splitClassMethod(arg string) (class, method string, ok bool) {
	class, method, found := strings.Cut(arg, ".")
	if !found || strings.Contains(method, ".") {
		return "", "", false
	}
	if !isClassName(class) || !strings.HasPrefix(method, "test") {
		return "", "", false
	}
	return class, method, true
}

func isClassName(s string) bool {
	if s == "" || strings.Contains(s, ".") {
		return false
	}
	return unicode.IsUpper(rune(s[0]))
}

// findClass scans test sources line by line for a declaration of the named
// class, or a dotted reference to it, and returns the dotted module path of
// the containing file.
func (r *Resolver) findClass(name string) (string, bool) {
	decl := "class " + name + "("
	ref := "." + name

	var module string
	found := r.walk(func(path string) bool {
		f, err := os.Open(path)
		if err != nil {
			return false
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.Contains(line, decl) || strings.Contains(line, ref) {
				module = ModulePath(path)
				return true
			}
		}
		return false
	})
	return module, found
}

// findFile searches the test roots for a file with the given name.
func (r *Resolver) findFile(name string) (string, bool) {
	var match string
	found := r.walk(func(path string) bool {
		if filepath.Base(path) == name {
			match = path
			return true
		}
		return false
	})
	return match, found
}

// walk visits every test source file under the roots in lexical order,
// stopping at the first file for which fn returns true.
func (r *Resolver) walk(fn func(path string) bool) bool {
	found := false
	for _, root := range r.roots {
		if found {
			break
		}
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && d.Name() != "." {
					return filepath.SkipDir
				}
				return nil
			}
			if !r.isTestFile(d.Name()) {
				return nil
			}
			if fn(path) {
				found = true
				return filepath.SkipAll
			}
			return nil
		})
	}
	return found
}

func (r *Resolver) isTestFile(name string) bool {
	return strings.HasPrefix(name, r.prefix) && strings.HasSuffix(name, ".py")
}

// TestFiles returns every test source file under the roots in walk order.
func (r *Resolver) TestFiles() []string {
	var files []string
	for _, root := range r.roots {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && d.Name() != "." {
					return filepath.SkipDir
				}
				return nil
			}
			if r.isTestFile(d.Name()) {
				files = append(files, path)
			}
			return nil
		})
	}
	return files
}

// ListTests returns the dotted identifiers of every test method declared in
// the given source file: <module>.<Class>.<method>.
func ListTests(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	module := ModulePath(path)
	var ids []string
	var class string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(line, "class ") {
			rest := strings.TrimPrefix(line, "class ")
			if i := strings.IndexAny(rest, "(:"); i > 0 {
				class = rest[:i]
			}
			continue
		}

		if class == "" || !strings.HasPrefix(trimmed, "def test") {
			continue
		}
		rest := strings.TrimPrefix(trimmed, "def ")
		if i := strings.IndexByte(rest, '('); i > 0 {
			ids = append(ids, module+"."+class+"."+rest[:i])
		}
	}
	return ids, scanner.Err()
}
