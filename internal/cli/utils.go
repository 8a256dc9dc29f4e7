// Package cli renders service results for the kotoba command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kotoba/internal/models"
	"github.com/hyperjump/kotoba/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// previewLen caps how much of the original text is echoed in text output.
const previewLen = 120

const rule = "─────────────────────────────────────────────────────────"

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteHumanizeResult writes a humanize result. In text format only the
// humanized text goes to w unless verbose is set, so the output can be piped.
func WriteHumanizeResult(w io.Writer, resp *models.HumanizeResponse, format OutputFormat, verbose bool) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	if !verbose {
		_, err := fmt.Fprintln(w, resp.HumanizedText)
		return err
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Tier: %s | Intensity: %.2f | %.3fs", resp.Tier, resp.Intensity, resp.ProcessingTime)
	if resp.Cached {
		fmt.Fprint(w, " (cached)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Techniques: %s\n", strings.Join(resp.TechniquesApplied, ", "))
	if resp.SimilarityScore != nil {
		fmt.Fprintf(w, "Similarity: %.4f\n", *resp.SimilarityScore)
	}
	fmt.Fprintf(w, "Original: %s\n", utils.Truncate(resp.OriginalText, previewLen))
	fmt.Fprintln(w, rule)
	_, err := fmt.Fprintf(w, "%s\n", resp.HumanizedText)
	return err
}

// WriteAnalysis writes a detector verdict.
func WriteAnalysis(w io.Writer, resp *models.AnalyzeResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "AI probability: %s\n", resp.AIProbability)
	fmt.Fprintf(w, "Recommendation: %s\n", resp.Recommendation)
	fmt.Fprintf(w, "Length: %d characters, %d sentences (variance %.2f)\n",
		resp.TextLength, resp.SentenceCount, resp.SentenceLengthVariance)
	p := resp.Patterns
	fmt.Fprintln(w, "Patterns:")
	fmt.Fprintf(w, "  uniform sentence length: %s\n", yesNo(p.UniformSentenceLength))
	fmt.Fprintf(w, "  lack of contractions:    %s\n", yesNo(p.LackOfContractions))
	fmt.Fprintf(w, "  repetitive structure:    %s\n", yesNo(p.RepetitiveStructure))
	if len(p.AIPhrases) > 0 {
		fmt.Fprintf(w, "  AI phrases: %s\n", strings.Join(p.AIPhrases, "; "))
	}
	return nil
}

// WriteTechniques writes the technique catalogue.
func WriteTechniques(w io.Writer, techniques []models.TechniqueInfo, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, models.TechniquesResponse{Techniques: techniques})
	}
	for _, t := range techniques {
		fmt.Fprintf(w, "%-24s %-7s %s\n", t.Name, t.Speed, t.Description)
	}
	return nil
}

// WriteBatch writes batch results in input order.
func WriteBatch(w io.Writer, resp *models.BatchHumanizeResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\nHumanized %d texts (%d failed) with tier %s in %.3fs\n\n",
		resp.TotalTexts, resp.Failed, resp.Tier, resp.ProcessingTime)
	for i, r := range resp.Results {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "[%d] %s\n", i+1, utils.Truncate(r.Original, previewLen))
		if r.Error != "" {
			fmt.Fprintf(w, "error: %s\n", r.Error)
			continue
		}
		fmt.Fprintf(w, "\n%s\n", r.Humanized)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
