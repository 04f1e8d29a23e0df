package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/matilda-project/matilda/internal/rule"
)

func enrollmentToStudentRule() rule.Rule {
	return rule.Rule{
		Body: []rule.Atom{
			{Relation: "enrollment", Terms: []rule.Term{rule.Anon(), rule.Var("x"), rule.Anon()}},
		},
		Head: []rule.Atom{
			{Relation: "student", Terms: []rule.Term{rule.Var("x"), rule.Var("n"), rule.Var("y"), rule.Var("d")}},
		},
		Existentials: []string{"n", "y", "d"},
	}
}

func TestBuild_RendersRuleFieldsAndMetadata(t *testing.T) {
	accepted := []Accepted{
		{Rule: enrollmentToStudentRule(), Support: 76, Confidence: 1.0},
	}
	results := Build("imperfect_database", accepted, 2500*time.Millisecond, StatusSuccess)

	require.Len(t, results.Rules, 1)
	rr := results.Rules[0]
	require.Equal(t, []string{"enrollment(_, x, _)"}, rr.Body)
	require.Equal(t, []string{"student(x, y, z, u)"}, rr.Head)
	require.Equal(t, uint64(76), rr.Support)
	require.InDelta(t, 1.0, rr.Confidence, 1e-9)
	require.NotEmpty(t, rr.TGDString)

	require.Equal(t, "imperfect_database", results.Metadata.Database)
	require.Equal(t, 1, results.Metadata.TotalRules)
	require.InDelta(t, 2.5, results.Metadata.ExecutionTimeSeconds, 1e-9)
	require.Equal(t, "success", results.Metadata.Status)
}

func TestBuild_RoundsConfidenceToFourDecimalPlaces(t *testing.T) {
	accepted := []Accepted{
		{Rule: enrollmentToStudentRule(), Support: 45, Confidence: 45.0 / 48.0},
	}
	results := Build("db", accepted, time.Second, StatusSuccess)
	require.Equal(t, 0.9375, results.Rules[0].Confidence)
}

func TestBuild_EmptyAcceptedListYieldsZeroRules(t *testing.T) {
	results := Build("db", nil, time.Second, StatusPartial)
	require.Empty(t, results.Rules)
	require.Equal(t, 0, results.Metadata.TotalRules)
	require.Equal(t, "partial", results.Metadata.Status)
}

func TestResults_WriteJSON_RoundTrips(t *testing.T) {
	results := Build("db", []Accepted{
		{Rule: enrollmentToStudentRule(), Support: 10, Confidence: 0.5},
	}, time.Second, StatusSuccess)

	var buf bytes.Buffer
	require.NoError(t, results.WriteJSON(&buf))

	var decoded Results
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, results, decoded)
}

func TestResults_WriteMarkdown_ListsEachRule(t *testing.T) {
	results := Build("db", []Accepted{
		{Rule: enrollmentToStudentRule(), Support: 76, Confidence: 1.0},
	}, time.Second, StatusSuccess)

	var buf bytes.Buffer
	require.NoError(t, results.WriteMarkdown(&buf))

	out := buf.String()
	require.Contains(t, out, "# MATILDA discovery report — db")
	require.Contains(t, out, "76")
	require.Contains(t, out, "1.0000")
	require.Contains(t, out, "Summary: 1 rules")
}

func TestResults_WriteMarkdown_NoRulesMessage(t *testing.T) {
	results := Build("db", nil, time.Second, StatusPartial)

	var buf bytes.Buffer
	require.NoError(t, results.WriteMarkdown(&buf))
	require.Contains(t, buf.String(), "No rules met the configured support and confidence thresholds.")
}

func TestJSONPath_And_MarkdownPath_NameArtifactsPerSpec(t *testing.T) {
	require.Equal(t, filepath.Join("results", "MATILDA_imperfect_database_results.json"), JSONPath("results", "imperfect_database"))
	require.Equal(t, filepath.Join("results", "report_MATILDA_imperfect_database.md"), MarkdownPath("results", "imperfect_database"))
}

func TestResults_Save_WritesBothFiles(t *testing.T) {
	dir := t.TempDir()
	results := Build("imperfect_database", []Accepted{
		{Rule: enrollmentToStudentRule(), Support: 76, Confidence: 1.0},
	}, time.Second, StatusSuccess)

	outputDir := filepath.Join(dir, "results")
	jsonPath, markdownPath, err := results.Save(outputDir)
	require.NoError(t, err)

	require.FileExists(t, jsonPath)
	require.FileExists(t, markdownPath)

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded Results
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, results, decoded)
}
