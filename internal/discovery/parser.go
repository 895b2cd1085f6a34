package discovery

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"sort"
	"strings"

	"ptrun/internal/domain"
)

var (
	// function ExtractResume(resume: string) -> Resume {
	functionPattern = regexp.MustCompile(`(?m)^\s*function\s+(\w+)\s*\(`)
	// test resume_basic {
	testPattern = regexp.MustCompile(`(?m)^\s*test\s+(\w+)\s*\{`)
	// functions [ExtractResume, ExtractCV]
	targetsPattern = regexp.MustCompile(`functions\s*\[([^\]]*)\]`)
)

// TestDecl is a test block and the functions it targets
type TestDecl struct {
	Name      string
	Functions []string
}

// FileDecls holds the declarations found in one source file
type FileDecls struct {
	Path      string
	Functions []string
	Tests     []TestDecl
}

// FunctionDecl is a declared function together with the tests targeting it.
// File is empty when tests target a function no scanned file declares.
type FunctionDecl struct {
	Name  string
	File  string
	Tests []string
}

// Parser extracts function and test declarations from prompt sources
type Parser struct{}

// NewParser creates a new Parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse finds the functions and tests declared in a source file
func (p *Parser) Parse(filePath string) (FileDecls, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return FileDecls{}, fmt.Errorf("error reading file %s: %w", filePath, err)
	}
	decls := p.ParseSource(string(content))
	decls.Path = filePath
	return decls, nil
}

// ParseSource is Parse on in-memory content
func (p *Parser) ParseSource(src string) FileDecls {
	var decls FileDecls

	functionMatches := functionPattern.FindAllStringSubmatchIndex(src, -1)
	for _, m := range functionMatches {
		decls.Functions = append(decls.Functions, src[m[2]:m[3]])
	}

	// a test body runs until the next declaration
	boundaries := make([]int, 0, len(functionMatches))
	for _, m := range functionMatches {
		boundaries = append(boundaries, m[0])
	}
	testMatches := testPattern.FindAllStringSubmatchIndex(src, -1)
	for _, m := range testMatches {
		boundaries = append(boundaries, m[0])
	}
	sort.Ints(boundaries)

	for _, m := range testMatches {
		end := len(src)
		for _, b := range boundaries {
			if b > m[0] {
				end = b
				break
			}
		}
		decl := TestDecl{Name: src[m[2]:m[3]]}
		if targets := targetsPattern.FindStringSubmatch(src[m[1]:end]); targets != nil {
			for _, name := range strings.Split(targets[1], ",") {
				if name = strings.TrimSpace(name); name != "" {
					decl.Functions = append(decl.Functions, name)
				}
			}
		}
		decls.Tests = append(decls.Tests, decl)
	}

	return decls
}

// Catalog parses files and groups tests under the functions they target.
// Functions are sorted by name, as are their tests.
func (p *Parser) Catalog(files []string) ([]FunctionDecl, error) {
	byName := make(map[string]*FunctionDecl)
	get := func(name string) *FunctionDecl {
		decl, ok := byName[name]
		if !ok {
			decl = &FunctionDecl{Name: name}
			byName[name] = decl
		}
		return decl
	}

	for _, file := range files {
		decls, err := p.Parse(file)
		if err != nil {
			return nil, err
		}
		for _, fn := range decls.Functions {
			get(fn).File = file
		}
		for _, test := range decls.Tests {
			for _, fn := range test.Functions {
				decl := get(fn)
				if !slices.Contains(decl.Tests, test.Name) {
					decl.Tests = append(decl.Tests, test.Name)
				}
			}
		}
	}

	catalog := make([]FunctionDecl, 0, len(byName))
	for _, decl := range byName {
		sort.Strings(decl.Tests)
		catalog = append(catalog, *decl)
	}
	sort.Slice(catalog, func(i, j int) bool { return catalog[i].Name < catalog[j].Name })
	return catalog, nil
}

// AllTestsRequest asks the runner for every available test of each
// function that has at least one test.
func AllTestsRequest(catalog []FunctionDecl) domain.TestRunRequest {
	var req domain.TestRunRequest
	for _, decl := range catalog {
		if len(decl.Tests) == 0 {
			continue
		}
		req.Functions = append(req.Functions, domain.FunctionTestSelection{
			Name:                 decl.Name,
			RunAllAvailableTests: true,
		})
	}
	return req
}
