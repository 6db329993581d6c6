package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nao1215/dsreport/internal/model"
)

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes title summary and rows", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewMarkdownWriter(&buf).Write(createTestRun())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("expected %d bytes, got %d", buf.Len(), n)
		}

		output := buf.String()
		for _, want := range []string{
			"# Datastandard Report: leaf",
			"| Status | ✅ Complete |",
			"## Attributes by Category",
			"| Leaf | 2 |",
			"| Root | 1 |",
			"```mermaid",
			`"Leaf" : 2`,
			"## Attributes",
			"| Category Name | Attribute Name | Description | Type | Groups |",
			"| Leaf | Size* |  | int[] |  |",
			"dimensions{<br>&nbsp;&nbsp;Width: decimal<br>}",
			"Basic<br>Logistics",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("escapes pipes in run information", func(t *testing.T) {
		t.Parallel()

		run := createTestRun()
		run.CategoryID = "a|b"
		run.Source = "dir|x/datastandard.json"

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		for _, want := range []string{"`a\\|b`", "`dir\\|x/datastandard.json`"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
		if strings.Contains(output, "`a|b`") {
			t.Errorf("unescaped pipe in run information\n%s", output)
		}
	})

	t.Run("failed run shows caution", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createFailedRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "[!CAUTION]") {
			t.Error("expected caution alert")
		}
		if strings.Contains(output, "## Attributes") {
			t.Error("expected no rows section")
		}
	})

	t.Run("incomplete datastandard shows warning", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(model.NewReportRun("leaf")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "[!WARNING]") {
			t.Error("expected warning alert")
		}
	})

	t.Run("header only shows note", func(t *testing.T) {
		t.Parallel()

		run := model.NewReportRun("unknown")
		run.Rows = []model.Row{model.Header()}

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No attributes apply") {
			t.Error("expected note")
		}
		if strings.Contains(buf.String(), "```mermaid") {
			t.Error("expected no chart without data rows")
		}
	})
}

func TestEscapeCell(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "Color", want: "Color"},
		{name: "pipe", in: "a|b", want: `a\|b`},
		{name: "newline", in: "Basic\nLogistics", want: "Basic<br>Logistics"},
		{name: "indented line", in: "x{\n  A: int\n}", want: "x{<br>&nbsp;&nbsp;A: int<br>}"},
		{name: "leading space on first line kept", in: " a", want: " a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := escapeCell(tt.in); got != tt.want {
				t.Errorf("escapeCell(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
