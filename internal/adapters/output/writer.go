// Package output provides adapters for writing application output: the JSON
// artifacts consumed by CI, the optional CI output sink, and the human
// summary printed to stdout.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/learning-assistant/test-select/internal/domain"
)

// Artifact file names, written under the configured output directory.
const (
	SelectionFile = "test-selection.json"
	MatrixFile    = "test-matrix.json"
)

// EnvCIOutput names the environment variable that, when set, points at the
// CI output sink file to append key=value lines to (GitHub Actions style).
const EnvCIOutput = "GITHUB_OUTPUT"

// matrixDocument wraps the matrix entries in the shape CI job matrices expect.
type matrixDocument struct {
	Include []domain.MatrixEntry `json:"include"`
}

// Writer implements domain.ReportWriter. It writes the selection detail and
// job matrix artifacts, and appends to the CI output sink when one is
// configured in the environment.
type Writer struct {
	outDir string
	getenv func(string) string
}

// NewWriter creates a Writer that writes artifacts under outDir and reads
// the sink location from the process environment.
func NewWriter(outDir string) *Writer {
	return &Writer{outDir: outDir, getenv: os.Getenv}
}

// NewWriterWithEnv creates a Writer with a custom environment lookup.
// This is useful for testing.
func NewWriterWithEnv(outDir string, getenv func(string) string) *Writer {
	return &Writer{outDir: outDir, getenv: getenv}
}

// WriteArtifacts writes the selection detail document and the job matrix
// document as indented JSON.
func (w *Writer) WriteArtifacts(result *domain.RunResult) error {
	if err := w.writeJSON(SelectionFile, selectionDocument(result)); err != nil {
		return err
	}
	return w.writeJSON(MatrixFile, matrixDocument{Include: result.Matrix})
}

// WriteCIOutput appends key=value lines to the CI output sink. A missing or
// empty sink variable is not an error; the sink is optional.
func (w *Writer) WriteCIOutput(result *domain.RunResult) error {
	sink := w.getenv(EnvCIOutput)
	if sink == "" {
		return nil
	}

	matrixJSON, err := json.Marshal(matrixDocument{Include: result.Matrix})
	if err != nil {
		return fmt.Errorf("failed to marshal job matrix: %w", err)
	}

	lines := fmt.Sprintf("selected-count=%d\nreduction=%d\nmatrix=%s\ntests=%s\n",
		result.Impact.SelectedTests,
		result.Impact.ReductionPercent,
		matrixJSON,
		strings.Join(result.Selection.Tests, ","),
	)

	f, err := os.OpenFile(sink, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open CI output sink: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(lines); err != nil {
		return fmt.Errorf("failed to append CI output: %w", err)
	}
	return nil
}

// WriteSummary prints a one-line human summary of the run.
func (w *Writer) WriteSummary(out io.Writer, result *domain.RunResult) error {
	mode := "selected"
	switch {
	case result.Selection.RunAll:
		mode = "running all (manifest change)"
	case result.Selection.Fallback:
		mode = "smoke fallback"
	}

	_, err := fmt.Fprintf(out, "%d of %d tests %s (%d%% reduction, ~%d%% time saved)\n",
		result.Impact.SelectedTests,
		result.Impact.TotalTests,
		mode,
		result.Impact.ReductionPercent,
		result.Impact.EstimatedSavingPercent,
	)
	return err
}

// selectionDocument flattens the run result into the selection artifact shape.
func selectionDocument(result *domain.RunResult) map[string]interface{} {
	return map[string]interface{}{
		"changed_files":  emptyIfNil(result.ChangedFiles),
		"selected_tests": emptyIfNil(result.Selection.Tests),
		"run_all":        result.Selection.RunAll,
		"fallback":       result.Selection.Fallback,
		"commands":       result.Commands,
		"matrix":         matrixDocument{Include: result.Matrix},
		"impact":         result.Impact,
		"generated_at":   result.GeneratedAt,
	}
}

// emptyIfNil keeps JSON arrays as [] instead of null for empty slices.
func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (w *Writer) writeJSON(name string, doc interface{}) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	data = append(data, '\n')

	target := filepath.Join(w.outDir, name)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return nil
}
