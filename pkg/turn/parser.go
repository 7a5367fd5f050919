package turn

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MalformedResponseError reports model output that could not be parsed
// into a Result. Raw carries the offending output for the correction
// prompt and for logs.
type MalformedResponseError struct {
	Reason string
	Raw    string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response: %s", e.Reason)
}

// ParseStrict parses a complete model response into a Result. It
// tolerates surrounding prose and markdown code fences, but the JSON
// itself must be well-formed and carry the required narrative fields.
func ParseStrict(raw string) (*Result, error) {
	body := stripFences(strings.TrimSpace(raw))
	if body == "" {
		return nil, &MalformedResponseError{Reason: "empty response", Raw: raw}
	}
	if body[0] != '{' {
		// Models sometimes prefix the JSON with a sentence of prose.
		if i := strings.IndexByte(body, '{'); i >= 0 {
			body = body[i:]
		} else {
			return nil, &MalformedResponseError{Reason: "no JSON object found", Raw: raw}
		}
	}
	var result Result
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return nil, &MalformedResponseError{Reason: err.Error(), Raw: raw}
	}
	result.sanitize()
	if err := result.Validate(); err != nil {
		return nil, &MalformedResponseError{Reason: err.Error(), Raw: raw}
	}
	return &result, nil
}

// stripFences removes a wrapping markdown code fence, with or without a
// language tag.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:] // drop the language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// sanitize walks every string value of the result and strips stray
// code-fence remnants. Models that open a fence before the JSON
// occasionally close it inside the last string field instead of after
// the object, and stripFences cannot see those.
func (r *Result) sanitize() {
	fields := []*string{
		&r.StoryText,
		&r.SummaryText,
		&r.WeatherChange,
		&r.StatusNarration,
		&r.OmniscientInterlude,
	}
	for _, f := range fields {
		*f = stripFenceRemnant(*f)
	}
	for i := range r.Choices {
		r.Choices[i] = stripFenceRemnant(r.Choices[i])
	}
	for i := range r.NPCUpdates {
		p := r.NPCUpdates[i].Payload
		if p == nil {
			continue
		}
		for _, f := range []*string{
			&p.Name, &p.Personality, &p.Appearance, &p.Backstory,
			&p.Status, &p.Relationship, &p.LastInteractionSummary,
		} {
			*f = stripFenceRemnant(*f)
		}
	}
}

// stripFenceRemnant removes a trailing backtick fence, and the
// whitespace around it, from a single string value. Strings without a
// trailing fence pass through untouched.
func stripFenceRemnant(s string) string {
	t := strings.TrimRight(s, " \t\r\n")
	if !strings.HasSuffix(t, "```") {
		return s
	}
	for strings.HasSuffix(t, "`") {
		t = strings.TrimRight(strings.TrimRight(t, "`"), " \t\r\n")
	}
	return t
}

// PartialExtractor recovers the storyText value from an incomplete JSON
// stream so the narrative can render while the rest of the response is
// still arriving. It is best-effort by construction: it scans rather
// than parses, and it never returns an error.
type PartialExtractor struct {
	buf strings.Builder
}

// Feed appends a stream chunk.
func (p *PartialExtractor) Feed(chunk string) {
	p.buf.WriteString(chunk)
}

// Reset discards the buffered stream, for reuse across retry attempts.
func (p *PartialExtractor) Reset() {
	p.buf.Reset()
}

// Raw returns everything fed so far.
func (p *PartialExtractor) Raw() string {
	return p.buf.String()
}

// StoryText returns the decoded storyText value seen so far. The bool
// is false until the opening quote of the value has arrived.
func (p *PartialExtractor) StoryText() (string, bool) {
	s := p.buf.String()
	i := strings.Index(s, `"storyText"`)
	if i < 0 {
		return "", false
	}
	s = s[i+len(`"storyText"`):]

	// Skip to the value: whitespace, colon, whitespace, opening quote.
	j := 0
	for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
		j++
	}
	if j >= len(s) || s[j] != ':' {
		return "", false
	}
	j++
	for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
		j++
	}
	if j >= len(s) || s[j] != '"' {
		return "", false
	}
	return decodePartialString(s[j+1:]), true
}

// decodePartialString decodes a JSON string body that may be cut off
// anywhere, including mid-escape. Decoding stops at the closing quote
// or at the end of input, whichever comes first.
func decodePartialString(s string) string {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' {
			break
		}
		if c != '\\' {
			out.WriteByte(c)
			continue
		}
		if i+1 >= len(s) {
			break // escape cut off by the stream
		}
		i++
		switch s[i] {
		case 'n':
			out.WriteByte('\n')
		case 't':
			out.WriteByte('\t')
		case 'r':
			out.WriteByte('\r')
		case '"', '\\', '/':
			out.WriteByte(s[i])
		case 'b', 'f':
			// dropped; not worth rendering mid-stream
		case 'u':
			if i+4 >= len(s) {
				return out.String()
			}
			if n, err := strconv.ParseUint(s[i+1:i+5], 16, 32); err == nil {
				out.WriteRune(rune(n))
			}
			i += 4
		}
	}
	return out.String()
}
