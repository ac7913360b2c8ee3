// Package prompt builds the instructions sent to the completion provider.
package prompt

import (
	"fmt"
	"strings"

	"github.com/pario-ai/tonal/pkg/tone"
)

// Build returns the primary rewrite instruction for text.
func Build(text string, formality tone.FormalityBand, verbosity tone.VerbosityBand, target int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Rewrite the following text so that it is %s in tone and %s in length.\n",
		formality.Description, verbosity.Description)
	fmt.Fprintf(&b, "Aim for approximately %d words.\n", target)

	switch verbosity.Band {
	case tone.BandLowest:
		fmt.Fprintf(&b, "CONCISENESS IS THE TOP PRIORITY: the result must not exceed %d words. "+
			"This length requirement dominates the output regardless of the requested formality. "+
			"Remove filler, hedging and repetition.\n", target)
	case tone.BandHighest:
		fmt.Fprintf(&b, "EXPANSION IS THE TOP PRIORITY: the result should reach about %d words. "+
			"This length requirement dominates the output regardless of the requested formality. "+
			"Add relevant detail and context without inventing facts.\n", target)
	}

	b.WriteString("Keep the original meaning intact.\n")
	b.WriteString("Do not add any explanations, headings or quotation marks, just return the rewritten text.\n\n")
	fmt.Fprintf(&b, "Original text: %q", text)
	return b.String()
}

// Tighten returns the second-pass instruction that cuts an already
// generated rewrite down to at most target words.
func Tighten(text string, target int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The following text is too long. Shorten it to at most %d words.\n", target)
	b.WriteString("Preserve its meaning and tone. Return only the shortened text with no explanation.\n\n")
	fmt.Fprintf(&b, "Text: %q", text)
	return b.String()
}
