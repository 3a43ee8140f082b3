package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/zerr"
)

// AddDependencies adds reqs to [project].dependencies of the manifest
// governing dir. A requirement naming an already listed package replaces it.
// The rest of the file is left byte-for-byte intact.
func (l *ProjectLoader) AddDependencies(dir string, reqs []domain.Requirement) error {
	return l.editDependencies(dir, func(existing []domain.Requirement) ([]string, error) {
		return mergeRequirements(existing, reqs), nil
	})
}

// RemoveDependencies drops every entry naming one of names from
// [project].dependencies. Naming a package that is not listed is an error
// and leaves the file untouched.
func (l *ProjectLoader) RemoveDependencies(dir string, names []domain.PackageName) error {
	return l.editDependencies(dir, func(existing []domain.Requirement) ([]string, error) {
		drop := make(map[domain.PackageName]bool, len(names))
		for _, n := range names {
			drop[n] = false
		}
		out := make([]string, 0, len(existing))
		for _, r := range existing {
			if _, ok := drop[r.Name]; ok {
				drop[r.Name] = true
				continue
			}
			out = append(out, r.String())
		}
		for _, n := range names {
			if !drop[n] {
				return nil, zerr.With(zerr.Wrap(domain.ErrNotADependency, "remove dependency"), "package", n.String())
			}
		}
		return out, nil
	})
}

func (l *ProjectLoader) editDependencies(dir string, edit func([]domain.Requirement) ([]string, error)) error {
	root, err := FindRoot(dir)
	if err != nil {
		return err
	}
	path := domain.ManifestPath(root)
	data, err := os.ReadFile(path) //nolint:gosec // path is discovered from the working directory
	if err != nil {
		return domain.FilesystemError(err, "read", path)
	}

	project, err := ParseProject(root, data)
	if err != nil {
		return err
	}
	deps, err := edit(project.Requirements)
	if err != nil {
		return zerr.With(err, "path", path)
	}

	updated, err := rewriteDependencies(string(data), deps)
	if err != nil {
		return zerr.With(err, "path", path)
	}
	if _, err := ParseProject(root, []byte(updated)); err != nil {
		return err
	}
	return writeFileAtomic(path, []byte(updated), domain.FilePerm)
}

func mergeRequirements(existing, added []domain.Requirement) []string {
	out := make([]string, 0, len(existing)+len(added))
	index := make(map[domain.PackageName]int, len(existing))
	for _, r := range existing {
		index[r.Name] = len(out)
		out = append(out, r.String())
	}
	for _, r := range added {
		if i, ok := index[r.Name]; ok {
			out[i] = r.String()
			continue
		}
		index[r.Name] = len(out)
		out = append(out, r.String())
	}
	return out
}

// rewriteDependencies replaces or inserts the dependencies array of the
// [project] table.
func rewriteDependencies(doc string, deps []string) (string, error) {
	array := renderArray(deps)

	start, end, ok := findTable(doc, "project")
	if !ok {
		sep := "\n"
		if doc == "" || strings.HasSuffix(doc, "\n\n") {
			sep = ""
		} else if !strings.HasSuffix(doc, "\n") {
			sep = "\n\n"
		}
		return doc + sep + "[project]\ndependencies = " + array + "\n", nil
	}

	body := doc[start:end]
	keyAt := findKey(body, "dependencies")
	if keyAt < 0 {
		return doc[:start] + "dependencies = " + array + "\n" + doc[start:], nil
	}
	open := strings.IndexByte(body[keyAt:], '[')
	if open < 0 {
		return "", zerr.Wrap(domain.ErrManifestInvalid, "dependencies is not an array")
	}
	open += keyAt
	closeAt, ok := matchBracket(body, open)
	if !ok {
		return "", zerr.Wrap(domain.ErrManifestInvalid, "unterminated dependencies array")
	}
	return doc[:start] + body[:open] + array + body[closeAt+1:] + doc[end:], nil
}

func renderArray(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteString("[\n")
	for _, it := range items {
		b.WriteString("    ")
		b.WriteString(strconv.Quote(it))
		b.WriteString(",\n")
	}
	b.WriteString("]")
	return b.String()
}

// findTable returns the byte range of a table's body: from the line after
// its header to the next header or the end of the document.
func findTable(doc, name string) (int, int, bool) {
	header := "[" + name + "]"
	offset := 0
	start := -1
	for _, line := range strings.SplitAfter(doc, "\n") {
		trimmed := strings.TrimSpace(line)
		if start >= 0 && strings.HasPrefix(trimmed, "[") {
			return start, offset, true
		}
		if start < 0 && trimmed == header {
			start = offset + len(line)
		}
		offset += len(line)
	}
	if start < 0 {
		return 0, 0, false
	}
	return start, len(doc), true
}

// findKey returns the offset of a line assigning key within body, or -1.
func findKey(body, key string) int {
	offset := 0
	for _, line := range strings.SplitAfter(body, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if rest, ok := strings.CutPrefix(trimmed, key); ok {
			if strings.HasPrefix(strings.TrimLeft(rest, " \t"), "=") {
				return offset + len(line) - len(trimmed)
			}
		}
		offset += len(line)
	}
	return -1
}

// matchBracket returns the index of the ']' closing the '[' at open,
// skipping quoted strings and comments.
func matchBracket(s string, open int) (int, bool) {
	depth := 0
	for i := open; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\'':
			j := i + 1
			for j < len(s) && s[j] != c {
				if c == '"' && s[j] == '\\' {
					j++
				}
				j++
			}
			i = j
		case '#':
			for i < len(s) && s[i] != '\n' {
				i++
			}
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return domain.FilesystemError(err, "mkdir", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return domain.FilesystemError(err, "create temp", dir)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return domain.FilesystemError(err, "write", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return domain.FilesystemError(err, "sync", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return domain.FilesystemError(err, "close", tmpName)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return domain.FilesystemError(err, "chmod", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return domain.FilesystemError(err, "rename", path)
	}
	return nil
}
