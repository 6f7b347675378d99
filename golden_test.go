package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/strager/cmmc/ast"
	"github.com/strager/cmmc/compiler"
	"github.com/strager/cmmc/sexy"
)

func TestGoldenSuites(t *testing.T) {
	testFiles, err := filepath.Glob("testdata/*_test.md")
	be.Err(t, err, nil)
	be.True(t, len(testFiles) > 0)

	for _, testFile := range testFiles {
		testName := strings.TrimSuffix(filepath.Base(testFile), ".md")

		t.Run(testName, func(t *testing.T) {
			content, err := os.ReadFile(testFile)
			be.Err(t, err, nil)

			testCases, err := sexy.ExtractTestCases(string(content))
			be.Err(t, err, nil)

			for _, tc := range testCases {
				t.Run(tc.Name, func(t *testing.T) {
					be.Equal(t, tc.InputType, sexy.InputTypeTree)
					unit, err := ast.FromSexy(tc.Tree)
					be.Err(t, err, nil)

					res, err := compiler.Compile(unit, compiler.Options{Program: "Test", NoEntryPoint: true})
					be.Err(t, err, nil)

					for i, assertion := range tc.Assertions {
						t.Run("assertion_"+string(rune('a'+i)), func(t *testing.T) {
							checkAssertion(t, res, assertion)
						})
					}
				})
			}
		})
	}
}

func checkAssertion(t *testing.T, res *compiler.Result, assertion sexy.Assertion) {
	t.Helper()
	switch assertion.Type {
	case sexy.AssertionTypeCode:
		name := assertion.Arg
		if name == "" {
			name = "main"
		}
		m := res.Program.Method(name)
		if m == nil {
			t.Fatalf("no method %s in class %s", name, res.Program.Name)
		}
		be.Equal(t, strings.Join(m.Code, "\n"), assertion.Content)
	case sexy.AssertionTypeCompileError:
		be.Equal(t, res.Errors.String(), assertion.Content)
	case sexy.AssertionTypeSymbols:
		be.Equal(t, strings.TrimRight(res.Context.Dump(), "\n"), assertion.Content)
	default:
		t.Fatalf("unknown assertion type %s", assertion.Type)
	}
}
