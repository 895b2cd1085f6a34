package discovery

import (
	"path/filepath"
	"strings"

	"ptrun/internal/domain"
)

// Filter filters functions by name pattern
type Filter struct{}

// NewFilter creates a new Filter
func NewFilter() *Filter {
	return &Filter{}
}

// Match reports whether name matches pattern.
// Supports patterns like "Extract*" or "*Resume*"; a pattern without
// wildcards matches any name containing it.
func (f *Filter) Match(name, pattern string) bool {
	if pattern == "" {
		return true
	}

	if matched, err := filepath.Match(pattern, name); err == nil && matched {
		return true
	}

	if !strings.ContainsAny(pattern, "*?") {
		return strings.Contains(name, pattern)
	}

	// "*Pay*ment*" style patterns: every literal part must appear
	if strings.Contains(pattern, "*") {
		hasPart := false
		for _, part := range strings.Split(pattern, "*") {
			if part == "" {
				continue
			}
			if !strings.Contains(name, part) {
				return false
			}
			hasPart = true
		}
		return hasPart
	}

	return false
}

// FilterFunctions narrows req to the functions whose name matches pattern
func (f *Filter) FilterFunctions(req domain.TestRunRequest, pattern string) domain.TestRunRequest {
	if pattern == "" {
		return req
	}

	var filtered domain.TestRunRequest
	for _, fn := range req.Functions {
		if f.Match(fn.Name, pattern) {
			filtered.Functions = append(filtered.Functions, fn)
		}
	}
	return filtered
}

// FilterDeclarations keeps the declared functions whose name matches pattern
func (f *Filter) FilterDeclarations(decls []FunctionDecl, pattern string) []FunctionDecl {
	if pattern == "" {
		return decls
	}

	var filtered []FunctionDecl
	for _, decl := range decls {
		if f.Match(decl.Name, pattern) {
			filtered = append(filtered, decl)
		}
	}
	return filtered
}
