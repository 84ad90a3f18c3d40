package generation

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kaptinlin/jsonrepair"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-cast-agent/internal/domain"
)

// DefaultMaxReplyLength is the platform limit on reply text, in characters.
const DefaultMaxReplyLength = 320

// Parse failures. All of them are recoverable by retrying generation.
var (
	ErrNoJSONBlock      = errors.New("no fenced json block")
	ErrInvalidJSON      = errors.New("json block is not an object")
	ErrMissingTextField = errors.New("missing string field \"text\"")
	ErrEmptyResponse    = errors.New("empty response text")
)

// IsParseFailure reports whether err is one of the parse failures.
func IsParseFailure(err error) bool {
	return errors.Is(err, ErrNoJSONBlock) ||
		errors.Is(err, ErrInvalidJSON) ||
		errors.Is(err, ErrMissingTextField) ||
		errors.Is(err, ErrEmptyResponse)
}

const fence = "```"

var (
	jsonFenceRE = regexp.MustCompile("(?s)```(?i:json)[ \t]*\\r?\\n?(.*?)```")
	anyFenceRE  = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\\r?\\n?(.*?)```")
	markerRE    = regexp.MustCompile(`[ \t]*\(([A-Z][A-Z0-9_]*)\)`)
)

// parsed carries the response plus the inline marker found in the text, so
// callers can report a disagreement with the structured action.
type parsed struct {
	resp   domain.GeneratedResponse
	marker string
}

// ParseResponse extracts and validates a GeneratedResponse from raw backend
// output. Text is NFC-normalised and cut to maxLen characters (maxLen <= 0
// means DefaultMaxReplyLength). Applying it to its own output re-wrapped as a
// JSON block yields the same value.
func ParseResponse(raw string, maxLen int) (domain.GeneratedResponse, error) {
	p, err := parse(raw, maxLen)
	return p.resp, err
}

func parse(raw string, maxLen int) (parsed, error) {
	if maxLen <= 0 {
		maxLen = DefaultMaxReplyLength
	}
	block, ok := extractBlock(raw)
	if !ok {
		return parsed{}, ErrNoJSONBlock
	}

	obj, err := decodeObject(block)
	if err != nil {
		return parsed{}, err
	}
	text, ok := obj["text"].(string)
	if !ok {
		return parsed{}, ErrMissingTextField
	}
	action, _ := obj["action"].(string)
	action = strings.ToUpper(strings.TrimSpace(action))

	// Stripping can expose a new marker, e.g. "(A(WAVE))", or a new fence,
	// e.g. "``(WAVE)`", so repeat until neither remains.
	var marker string
	for {
		stripped := strings.ReplaceAll(text, fence, "")
		if m := markerRE.FindStringSubmatch(stripped); m != nil {
			if marker == "" {
				marker = m[1]
			}
			stripped = markerRE.ReplaceAllString(stripped, "")
		}
		if stripped == text {
			break
		}
		text = stripped
	}
	if marker != "" && (action == "" || action == domain.ActionNone) {
		action = marker
	}

	text = strings.TrimSpace(norm.NFC.String(text))
	if text == "" {
		return parsed{}, ErrEmptyResponse
	}
	if utf8.RuneCountInString(text) > maxLen {
		text = strings.TrimSpace(string([]rune(text)[:maxLen]))
	}
	if action == "" {
		action = domain.ActionNone
	}
	return parsed{resp: domain.GeneratedResponse{Text: text, Action: action}, marker: marker}, nil
}

func extractBlock(raw string) (string, bool) {
	if m := jsonFenceRE.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := anyFenceRE.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

// decodeObject parses block as a JSON object, repairing near-JSON (trailing
// commas, single quotes, unquoted keys) when strict decoding fails.
func decodeObject(block string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(block), &obj); err == nil && obj != nil {
		return obj, nil
	}
	repaired, err := jsonrepair.JSONRepair(block)
	if err != nil {
		return nil, errors.Join(ErrInvalidJSON, err)
	}
	obj = nil
	if err := json.Unmarshal([]byte(repaired), &obj); err != nil || obj == nil {
		return nil, ErrInvalidJSON
	}
	return obj, nil
}

// Wrap renders r as the fenced JSON block ParseResponse accepts. Backticks
// are escaped so the text cannot close the fence.
func Wrap(r domain.GeneratedResponse) string {
	b, _ := json.Marshal(r)
	return "```json\n" + strings.ReplaceAll(string(b), "`", `\u0060`) + "\n```"
}
