package segment

import (
	"regexp"
	"strings"
)

var (
	abstractLine   = regexp.MustCompile(`(?i)^\s*abstract\s*$`)
	numberedLead   = regexp.MustCompile(`^\s*\d+\.?\s`)
	abstractEndRe  = regexp.MustCompile(`(?i)^\s*(introduction|keywords|index terms)\s*$`)
	authorSymbols  = "†‡⋆"
	authorKeywords = []string{"university", "research", "institute"}
)

// bodyText rebuilds the document text. The first page starts right after a
// bare "Abstract" line when there is one, dropping title and author lines;
// otherwise it is used whole. Pages are joined by blank lines.
func bodyText(pages []string) string {
	if len(pages) == 0 {
		return ""
	}
	text := afterAbstract(strings.TrimSpace(pages[0]))

	rest := make([]string, 0, len(pages)-1)
	for _, p := range pages[1:] {
		rest = append(rest, strings.TrimSpace(p))
	}
	if joined := strings.Join(rest, "\n\n"); strings.TrimSpace(joined) != "" {
		text += "\n\n" + joined
	}
	return text
}

func afterAbstract(page string) string {
	lines := strings.Split(page, "\n")
	for i, ln := range lines {
		if abstractLine.MatchString(strings.TrimSpace(ln)) {
			return strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
		}
	}
	return page
}

// blocks splits text into paragraph-like blocks on blank lines.
func blocks(text string) []string {
	var out []string
	for _, b := range strings.Split(text, "\n\n") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// FrontMatter pulls the title and abstract out of the first page.
//
// The title is every line before the "Abstract" line or the first line that
// looks like an author or affiliation, falling back to the first line. The
// abstract is the run of lines after "Abstract" up to the first numbered
// heading, an Introduction/Keywords/Index Terms line, or an arXiv stamp.
func FrontMatter(firstPage string) (title, abstract string) {
	var lines []string
	for _, ln := range strings.Split(strings.TrimSpace(firstPage), "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	if len(lines) == 0 {
		return "", ""
	}

	var titleParts []string
	for _, ln := range lines {
		if abstractLine.MatchString(ln) || looksLikeAuthor(ln) {
			break
		}
		titleParts = append(titleParts, ln)
	}
	title = strings.Join(titleParts, " ")
	if title == "" {
		title = lines[0]
	}

	for i, ln := range lines {
		if !abstractLine.MatchString(ln) {
			continue
		}
		var body []string
		for _, next := range lines[i+1:] {
			if numberedLead.MatchString(next) || abstractEndRe.MatchString(next) ||
				strings.HasPrefix(strings.ToLower(next), "arxiv:") {
				break
			}
			body = append(body, next)
		}
		abstract = strings.Join(body, " ")
		break
	}
	return title, abstract
}

func looksLikeAuthor(line string) bool {
	lower := strings.ToLower(line)
	if strings.Contains(line, "@") || strings.Contains(lower, ".com") {
		return true
	}
	if strings.ContainsAny(line, authorSymbols) {
		return true
	}
	for _, kw := range authorKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return strings.Count(line, ",") >= 2
}
