package discovery

import (
	"path/filepath"
	"reflect"
	"testing"
)

const resumeSource = `
class Resume {
  name string
}

function ExtractResume(resume: string) -> Resume {
  client GPT4
  prompt #"
    Extract the resume. test nothing here
  "#
}

function ExtractCV(cv: string) -> Resume {
  client GPT4
  prompt #"{{ cv }}"#
}

test senior_engineer {
  functions [ExtractResume, ExtractCV]
  args {
    resume "..."
  }
}

test junior {
  functions [ ExtractResume ]
}

test orphan {
  args {}
}
`

func TestParser_ParseSource(t *testing.T) {
	decls := NewParser().ParseSource(resumeSource)

	if want := []string{"ExtractResume", "ExtractCV"}; !reflect.DeepEqual(decls.Functions, want) {
		t.Errorf("expected functions %v, got %v", want, decls.Functions)
	}

	want := []TestDecl{
		{Name: "senior_engineer", Functions: []string{"ExtractResume", "ExtractCV"}},
		{Name: "junior", Functions: []string{"ExtractResume"}},
		{Name: "orphan"},
	}
	if !reflect.DeepEqual(decls.Tests, want) {
		t.Errorf("expected tests %+v, got %+v", want, decls.Tests)
	}
}

func TestParser_Catalog(t *testing.T) {
	root := writeProject(t, map[string]string{
		"resume.prompt": resumeSource,
		"extra.prompt": `
test shared {
  functions [ExtractCV, Summarize]
}
`,
	})

	files, err := NewScanner(nil, []string{".prompt"}).Scan(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	catalog, err := NewParser().Catalog(files)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []FunctionDecl{
		{Name: "ExtractCV", File: filepath.Join(root, "resume.prompt"), Tests: []string{"senior_engineer", "shared"}},
		{Name: "ExtractResume", File: filepath.Join(root, "resume.prompt"), Tests: []string{"junior", "senior_engineer"}},
		{Name: "Summarize", Tests: []string{"shared"}},
	}
	if !reflect.DeepEqual(catalog, want) {
		t.Errorf("expected catalog %+v, got %+v", want, catalog)
	}

	req := AllTestsRequest(catalog)
	if len(req.Functions) != 3 {
		t.Fatalf("expected 3 functions, got %d", len(req.Functions))
	}
	for _, fn := range req.Functions {
		if !fn.RunAllAvailableTests {
			t.Errorf("expected %s to run all available tests", fn.Name)
		}
	}
}

func TestParser_ParseMissingFile(t *testing.T) {
	if _, err := NewParser().Parse(filepath.Join(t.TempDir(), "missing.prompt")); err == nil {
		t.Error("expected error for missing file")
	}
}
