package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func writeTree(t *testing.T, name, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	be.Err(t, os.WriteFile(path, []byte(source), 0644), nil)
	return path
}

func execute(args ...string) (stdout, stderr string, err error) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestBuildCommand(t *testing.T) {
	path := writeTree(t, "demo.tree", "(unit (decl int g) (func int main [] (block (return g))))")

	stdout, _, err := execute("build", path)
	be.Err(t, err, nil)

	output := filepath.Join(filepath.Dir(path), "demo.j")
	be.True(t, strings.HasPrefix(stdout, "Generated "+output))
	text, err := os.ReadFile(output)
	be.Err(t, err, nil)
	be.True(t, strings.HasPrefix(string(text), ".class public demo\n"))
	be.True(t, strings.Contains(string(text), "invokestatic demo/main()I"))
}

func TestBuildCommandFlags(t *testing.T) {
	path := writeTree(t, "demo.tree", "(unit (func int main [] (block (return 1))))")
	output := filepath.Join(t.TempDir(), "out.j")

	_, _, err := execute("build", "-p", "Hello", "--stack", "8", "--no-main", "-o", output, path)
	be.Err(t, err, nil)

	text, err := os.ReadFile(output)
	be.Err(t, err, nil)
	be.True(t, strings.HasPrefix(string(text), ".class public Hello\n"))
	be.True(t, strings.Contains(string(text), ".limit stack 8"))
	be.Equal(t, strings.Contains(string(text), "([Ljava/lang/String;)V"), false)
}

func TestBuildCommandReportsErrors(t *testing.T) {
	path := writeTree(t, "bad.tree", "(unit (func void f [] (block (print z))))")

	_, stderr, err := execute("build", path)
	be.True(t, errors.Is(err, errCompilationFailed))
	be.True(t, strings.Contains(stderr, "Errors in "+path))
	be.True(t, strings.Contains(stderr, "line 1: error: undefined variable 'z'"))

	_, statErr := os.Stat(filepath.Join(filepath.Dir(path), "bad.j"))
	be.True(t, os.IsNotExist(statErr))
}

func TestCheckCommand(t *testing.T) {
	path := writeTree(t, "ok.tree", "(unit (decl int x))")

	stdout, _, err := execute("check", path)
	be.Err(t, err, nil)
	be.Equal(t, stdout, path+": no errors found\n")

	_, _, err = execute("check", filepath.Join(t.TempDir(), "missing.tree"))
	be.Err(t, err, "reading file")

	path = writeTree(t, "broken.tree", "(unit (decl int x)")
	_, _, err = execute("check", path)
	be.Err(t, err, "parse error")
}

func TestSymbolsCommand(t *testing.T) {
	path := writeTree(t, "s.tree", "(unit (decl long x) (func void f [(int a)] (block)))")

	stdout, _, err := execute("symbols", path)
	be.Err(t, err, nil)
	be.Equal(t, stdout, "global global 0\n  x #0 slot 0 long\nf function 1\n  a #0 slot 0 int\n")
}

func TestVerboseFlag(t *testing.T) {
	path := writeTree(t, "v.tree", "(unit (decl int x))")

	_, stderr, err := execute("check", "-v", path)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(stderr, "cmmc: compiling "+path+" as v"))
	be.True(t, strings.Contains(stderr, "cmmc: pass 2: generating code"))
}

func TestProgramName(t *testing.T) {
	be.Equal(t, programName("dir/sub/prog.tree"), "prog")
	be.Equal(t, programName("prog"), "prog")
}
