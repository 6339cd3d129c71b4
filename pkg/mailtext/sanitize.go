package mailtext

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	htmlPattern       = regexp.MustCompile(`(?i)<(?:html|head|body|div|p|br|span|table|tr|td|a|b|i|u|em|strong|font|ul|ol|li|h[1-6]|blockquote|style|script|meta)(?:\s[^>]*)?/?>`)
	quoteStartPattern = regexp.MustCompile(`(?i)^(On\s.+\swrote:?$|From:\s|Sent:\s|Date:\s|-----\s*Original Message\s*-----|-----\s*Forwarded Message\s*-----|Begin forwarded message:)`)
	separatorPattern  = regexp.MustCompile(`^(-{2,3}|_{2,3}|={2,3})\s*$`)
	signoffPattern    = regexp.MustCompile(`(?i)^((Sent from|Sent via|Get Outlook|Get Gmail)\b.*|(Best regards|Kind regards|Regards|Sincerely|Cheers|Thanks|Thank you)[\s,.!]*)$`)
	headerPattern     = regexp.MustCompile(`(?i)^(From|To|Subject|Date|CC|BCC|Reply-To|Message-ID):`)
	blankRunPattern   = regexp.MustCompile(`\n{3,}`)
	spaceRunPattern   = regexp.MustCompile(`[ \t\f\r]+`)
)

// Sanitize reduces an email reply body to what the writer actually typed:
// HTML is flattened, quoted history and signatures are cut, entities are
// decoded and stray header lines are dropped.
func Sanitize(body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	if IsHTML(body) {
		body = StripHTML(body)
	}
	body = strings.ReplaceAll(body, "\r\n", "\n")

	// Everything after the first quote marker is history.
	var kept []string
	for _, line := range strings.Split(body, "\n") {
		stripped := strings.TrimSpace(line)
		if quoteStartPattern.MatchString(stripped) ||
			strings.HasPrefix(stripped, ">") || strings.HasPrefix(stripped, "|") {
			break
		}
		if separatorPattern.MatchString(stripped) || stripped == "--" || signoffPattern.MatchString(stripped) {
			break
		}
		kept = append(kept, line)
	}

	result := strings.TrimSpace(blankRunPattern.ReplaceAllString(strings.Join(kept, "\n"), "\n\n"))
	result = html.UnescapeString(result)
	return strings.TrimSpace(removeHeaders(result))
}

func IsHTML(text string) bool {
	return htmlPattern.MatchString(text)
}

var blockTags = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "tr": true, "blockquote": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// StripHTML returns the visible text of an HTML fragment. Script and style
// contents are dropped and block elements become line breaks.
func StripHTML(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return tidyLines(b.String())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skip++
			}
			if blockTags[tag] {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
			if blockTags[tag] {
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func tidyLines(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.TrimSpace(spaceRunPattern.ReplaceAllString(l, " "))
		if l == "" && (len(out) == 0 || out[len(out)-1] == "") {
			continue
		}
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// removeHeaders drops header-looking lines and any continuation lines up to
// the next blank line.
func removeHeaders(text string) string {
	var kept []string
	skipping := false
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			skipping = false
			kept = append(kept, line)
			continue
		}
		if headerPattern.MatchString(line) {
			skipping = true
			continue
		}
		if !skipping {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
