package extract

import (
	"strings"
)

const SectionFactPrompt = `You are given a section of an academic paper. Write exactly ONE short line (one sentence) that states what was used, proposed, or found in THIS section.

Rules:
- Keep it as short and concise as possible, no filler words
- Include key terms: model names, dataset names, method names, metrics, or tools
- Mention only what this paper did, not prior or related work
- Do NOT start with "This paper" or "The paper"; start directly with the fact, method, or result
- The line will be used for search, so pack in the important keywords

Reply with only that one line, nothing else.`

const SummaryPrompt = `You are given one sentence per section of an academic paper. Write ONE short paragraph that summarizes the document.

Rules:
- Do NOT repeat the same ideas; merge and rephrase so each point is said once
- The paragraph should read as one consistent summary, concise and with no filler
- Include key terms (models, datasets, methods, results)

Reply with only the paragraph, nothing else.`

// MaxSectionChars caps the section text sent for a fact.
const MaxSectionChars = 8000

// BuildFactInput formats a section's text for the fact prompt, cut to
// MaxSectionChars characters.
func BuildFactInput(sectionText string) string {
	text := sectionText
	if r := []rune(text); len(r) > MaxSectionChars {
		text = string(r[:MaxSectionChars])
	}
	return "Section text:\n" + text
}

// BuildSummaryInput renders the fact sentences as a bullet list. Blank facts
// are skipped; no facts gives "".
func BuildSummaryInput(facts []string) string {
	var sb strings.Builder
	for _, f := range facts {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- ")
		sb.WriteString(f)
	}
	if sb.Len() == 0 {
		return ""
	}
	return "Section sentences:\n" + sb.String()
}

// firstLine returns the first line of a model reply, trimmed.
func firstLine(reply string) string {
	reply = strings.TrimSpace(reply)
	if i := strings.IndexByte(reply, '\n'); i >= 0 {
		reply = reply[:i]
	}
	return strings.TrimSpace(reply)
}
