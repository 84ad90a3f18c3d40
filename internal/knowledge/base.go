// Package knowledge ranks paragraphs of an optional markdown knowledge file
// against a cast's text, so the most relevant facts can be quoted in the
// reply prompt.
//
// A Base is immutable after construction and safe for concurrent use.
// Ranking is Jaccard similarity of lower-cased word sets,
// |Q ∩ P| / |Q ∪ P|, with ties broken by shorter paragraph, then text.
package knowledge

import (
	"bytes"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Snippet is a ranked paragraph.
type Snippet struct {
	Text  string
	Score float64
}

type paragraph struct {
	text  string
	words map[string]struct{}
	runes int
}

// Base is a ranked paragraph store.
type Base struct {
	minRunes  int
	stopwords map[string]struct{}
	paras     []paragraph
}

// Option configures a Base.
type Option func(*Base)

// WithMinRunes drops paragraphs shorter than n characters (default 20).
func WithMinRunes(n int) Option {
	return func(b *Base) {
		if n >= 0 {
			b.minRunes = n
		}
	}
}

// WithStopwords excludes words from matching.
func WithStopwords(words ...string) Option {
	return func(b *Base) {
		for _, w := range words {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				b.stopwords[w] = struct{}{}
			}
		}
	}
}

// DefaultStopwords are common English words that carry no topic.
var DefaultStopwords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "do", "for", "from",
	"gm", "has", "have", "hey", "hi", "how", "i", "in", "is", "it", "its", "me",
	"my", "of", "on", "or", "so", "that", "the", "this", "to", "was", "we",
	"what", "when", "who", "why", "will", "with", "you", "your",
}

func newBase(opts []Option) *Base {
	b := &Base{minRunes: 20, stopwords: map[string]struct{}{}}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Load reads a markdown file. An empty path yields an empty Base.
func Load(path string, opts ...Option) (*Base, error) {
	if strings.TrimSpace(path) == "" {
		return newBase(opts), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return newBase(opts), err
	}
	return FromReader(bytes.NewReader(raw), opts...)
}

// FromReader builds a Base from markdown text. Paragraphs are separated by
// blank lines; each table row becomes its own paragraph.
func FromReader(r io.Reader, opts ...Option) (*Base, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return newBase(opts), err
	}
	return FromParagraphs(splitMarkdown(string(raw)), opts...), nil
}

// FromParagraphs builds a Base from ready paragraphs.
func FromParagraphs(paras []string, opts ...Option) *Base {
	b := newBase(opts)
	for _, p := range paras {
		t := strings.Join(strings.Fields(p), " ")
		n := utf8.RuneCountInString(t)
		if t == "" || n < b.minRunes {
			continue
		}
		words := b.words(t)
		if len(words) == 0 {
			continue
		}
		b.paras = append(b.paras, paragraph{text: t, words: words, runes: n})
	}
	return b
}

// Len returns the number of indexed paragraphs.
func (b *Base) Len() int {
	if b == nil {
		return 0
	}
	return len(b.paras)
}

// Search returns up to k paragraphs sharing at least one word with query.
func (b *Base) Search(query string, k int) []Snippet {
	if b == nil || len(b.paras) == 0 || k <= 0 {
		return nil
	}
	q := b.words(query)
	if len(q) == 0 {
		return nil
	}

	type hit struct {
		Snippet
		runes int
	}
	var hits []hit
	for _, p := range b.paras {
		inter := 0
		for w := range q {
			if _, ok := p.words[w]; ok {
				inter++
			}
		}
		if inter == 0 {
			continue
		}
		score := float64(inter) / float64(len(q)+len(p.words)-inter)
		hits = append(hits, hit{Snippet{Text: p.text, Score: score}, p.runes})
	}
	if len(hits) == 0 {
		return nil
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].runes != hits[j].runes {
			return hits[i].runes < hits[j].runes
		}
		return hits[i].Text < hits[j].Text
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]Snippet, len(hits))
	for i, h := range hits {
		out[i] = h.Snippet
	}
	return out
}

// Render formats snippets as "- text" lines.
func Render(snips []Snippet) string {
	lines := make([]string, len(snips))
	for i, s := range snips {
		lines[i] = "- " + s.Text
	}
	return strings.Join(lines, "\n")
}

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*|\p{N}+`)

func (b *Base) words(s string) map[string]struct{} {
	found := wordRE.FindAllString(strings.ToLower(s), -1)
	if len(found) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(found))
	for _, w := range found {
		if _, skip := b.stopwords[w]; !skip {
			out[w] = struct{}{}
		}
	}
	return out
}

var blankLineRE = regexp.MustCompile(`\n\s*\n`)

// splitMarkdown splits on blank lines and turns table rows into one
// paragraph each, dropping separator rows like "|---|:--:|".
func splitMarkdown(s string) []string {
	var out []string
	for _, chunk := range blankLineRE.Split(strings.ReplaceAll(s, "\r\n", "\n"), -1) {
		var prose []string
		for _, line := range strings.Split(chunk, "\n") {
			line = strings.TrimSpace(line)
			if !(strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|")) {
				if line != "" {
					prose = append(prose, line)
				}
				continue
			}
			var cells []string
			for _, c := range strings.Split(strings.Trim(line, "|"), "|") {
				c = strings.TrimSpace(c)
				if strings.Trim(c, ":- ") != "" {
					cells = append(cells, c)
				}
			}
			if len(cells) > 0 {
				out = append(out, strings.Join(cells, " "))
			}
		}
		if len(prose) > 0 {
			out = append(out, strings.Join(prose, " "))
		}
	}
	return out
}
