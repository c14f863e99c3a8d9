package utlx_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	utlx "github.com/grauwen/utl-x-sub015"
	"github.com/grauwen/utl-x-sub015/pkg/codec"
	"github.com/grauwen/utl-x-sub015/pkg/types"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

// conformanceCase is one case file under testdata/conformance.
type conformanceCase struct {
	Name           string               `yaml:"name"`
	Description    string               `yaml:"description"`
	Transformation string               `yaml:"transformation"`
	Input          document             `yaml:"input"`
	Expected       document             `yaml:"expected"`
	ErrorExpected  *expectedError       `yaml:"error_expected"`
	KnownIssue     *knownIssue          `yaml:"known_issue"`
	Variants       []conformanceVariant `yaml:"variants"`
}

type conformanceVariant struct {
	Name           string         `yaml:"name"`
	Transformation string         `yaml:"transformation"`
	Input          document       `yaml:"input"`
	Expected       document       `yaml:"expected"`
	ErrorExpected  *expectedError `yaml:"error_expected"`
}

// document is either raw text in Format or inline YAML data.
type document struct {
	Format string    `yaml:"format"`
	Data   yaml.Node `yaml:"data"`
}

type expectedError struct {
	Kind    string `yaml:"kind"`
	Message string `yaml:"message"`
}

type knownIssue struct {
	IssueDescription string `yaml:"issue_description"`
}

func (d document) value() (udm.Value, error) {
	if d.Data.Kind == 0 {
		return udm.NullValue, nil
	}
	if d.Format != "" && d.Data.Kind == yaml.ScalarNode && d.Data.ShortTag() == "!!str" {
		if strings.TrimSpace(d.Data.Value) == "" {
			return udm.NullValue, nil
		}
		return codec.Decode(d.Format, []byte(d.Data.Value))
	}
	data, err := yaml.Marshal(&d.Data)
	if err != nil {
		return nil, err
	}
	return codec.DecodeYAML(data)
}

func loadConformance(t *testing.T) map[string]conformanceCase {
	t.Helper()
	files, err := filepath.Glob(filepath.Join("testdata", "conformance", "*.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no conformance cases found")
	}
	cases := make(map[string]conformanceCase)
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatal(err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		for {
			var c conformanceCase
			if err := dec.Decode(&c); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				t.Fatalf("%s: %v", f, err)
			}
			if c.Name == "" {
				t.Fatalf("%s: case without a name", f)
			}
			cases[filepath.Base(f)+"/"+c.Name] = c
		}
	}
	return cases
}

func TestConformance(t *testing.T) {
	for name, c := range loadConformance(t) {
		t.Run(name, func(t *testing.T) {
			if c.KnownIssue != nil {
				t.Skipf("known issue: %s", c.KnownIssue.IssueDescription)
			}
			if len(c.Variants) == 0 {
				runConformance(t, c.Transformation, c.Input, c.Expected, c.ErrorExpected)
				return
			}
			for _, v := range c.Variants {
				t.Run(v.Name, func(t *testing.T) {
					src := v.Transformation
					if src == "" {
						src = c.Transformation
					}
					runConformance(t, src, v.Input, v.Expected, v.ErrorExpected)
				})
			}
		})
	}
}

func runConformance(t *testing.T, src string, input, expected document, wantErr *expectedError) {
	t.Helper()
	in, err := input.value()
	if err != nil {
		t.Fatalf("input: %v", err)
	}

	got, err := utlx.Eval(context.Background(), src, in)
	if wantErr != nil {
		if err == nil {
			t.Fatalf("expected %s error, got %s", wantErr.Kind, got)
		}
		var re *types.RuntimeError
		var pe *types.ParseError
		switch {
		case errors.As(err, &re):
			if wantErr.Kind != "" && string(re.Kind) != wantErr.Kind {
				t.Fatalf("error kind = %s, want %s (%v)", re.Kind, wantErr.Kind, err)
			}
		case errors.As(err, &pe):
			if wantErr.Kind != "" && wantErr.Kind != "ParseError" {
				t.Fatalf("parse error %v, want %s", err, wantErr.Kind)
			}
		}
		if wantErr.Message != "" && !strings.Contains(err.Error(), wantErr.Message) {
			t.Fatalf("error %q does not mention %q", err, wantErr.Message)
		}
		return
	}
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want, err := expected.value()
	if err != nil {
		t.Fatalf("expected: %v", err)
	}
	if !udm.Equal(got, want) {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}
