package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ptrun/internal/domain"
)

// Scanner scans a project for prompt source files
type Scanner struct {
	skipDirs   map[string]bool
	extensions []string
}

// NewScanner creates a new Scanner with the given directories to skip.
// Files match when their name ends with one of extensions; no extensions
// matches every file.
func NewScanner(skipDirs, extensions []string) *Scanner {
	skipMap := make(map[string]bool)
	for _, dir := range skipDirs {
		skipMap[dir] = true
	}
	return &Scanner{skipDirs: skipMap, extensions: extensions}
}

// Scan finds all source files in the given root directory
func (s *Scanner) Scan(root string) ([]string, error) {
	var files []string

	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("project path does not exist: %s", root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project path is not a directory: %s", root)
	}

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			name := d.Name()
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if s.skipDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}

		if s.matches(d.Name()) {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// Files reads every source file under root. Names are relative to root
// and use forward slashes.
func (s *Scanner) Files(root string) ([]domain.ProjectFile, error) {
	paths, err := s.Scan(root)
	if err != nil {
		return nil, err
	}

	files := make([]domain.ProjectFile, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading file %s: %w", path, err)
		}
		rel, err := filepath.Rel(filepath.Clean(root), path)
		if err != nil {
			return nil, fmt.Errorf("error resolving %s: %w", path, err)
		}
		files = append(files, domain.ProjectFile{
			Name:    filepath.ToSlash(rel),
			Content: string(content),
		})
	}
	return files, nil
}

func (s *Scanner) matches(name string) bool {
	if len(s.extensions) == 0 {
		return true
	}
	for _, ext := range s.extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// ProjectSource binds a Scanner to one project root
type ProjectSource struct {
	scanner *Scanner
	root    string
}

func NewProjectSource(scanner *Scanner, root string) *ProjectSource {
	return &ProjectSource{scanner: scanner, root: root}
}

func (p *ProjectSource) Files() ([]domain.ProjectFile, error) {
	return p.scanner.Files(p.root)
}
