package extract

import (
	"regexp"
	"strings"
)

// Policy decides which block is kept when two blocks claim the same identity.
type Policy string

const (
	// LastWins lets a later block replace an earlier one. Regeneration checks
	// then see the most recently inserted block.
	LastWins Policy = "last_wins"
	// FirstWins keeps the earliest block.
	FirstWins Policy = "first_wins"
)

// TestBlockRecord is one describe block inside a spec file.
type TestBlockRecord struct {
	Identity string // the quoted describe argument, e.g. "#charge"
	Text     string // from the describe token through its matching end
	Offset   int    // byte offset of the describe token
}

// BlockIndex maps claimed identities to blocks. Keys keep the order of their
// first insertion.
type BlockIndex struct {
	order  []string
	blocks map[string]TestBlockRecord
}

// openPattern recognizes describe '<selector><ident>' do. The selector is
// optional and matched case-insensitively. Metadata after the argument
// (describe '#x', :vcr do) and the paren form describe('#x') do are accepted.
var openPattern = regexp.MustCompile(
	`\bdescribe(?:\s+|\s*\(\s*)(['"])((?i:#|\.|POST |GET |PUT |PATCH |DELETE )?` + identPattern + `)(['"])` +
		`(?:\s*,[^\n]*?)?\s*\)?\s*do\b`)

var wordPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*[?!]?`)

// lineOpeners open a block that closes with end when they start a line.
var lineOpeners = map[string]bool{
	"def": true, "if": true, "unless": true, "case": true, "begin": true,
	"while": true, "until": true, "for": true, "class": true, "module": true,
}

// loopOpeners take an optional do that does not open a second block.
var loopOpeners = map[string]bool{"while": true, "until": true, "for": true}

// Index finds every recognized describe block in text. context and it never
// open an indexed block, and describe arguments outside the selector grammar
// are ignored.
func Index(text string, policy Policy) *BlockIndex {
	idx := &BlockIndex{blocks: make(map[string]TestBlockRecord)}

	for _, m := range openPattern.FindAllStringSubmatchIndex(text, -1) {
		if text[m[2]:m[3]] != text[m[6]:m[7]] {
			continue // mismatched quotes
		}
		id := text[m[4]:m[5]]
		end := matchEnd(text, m[0])
		idx.put(TestBlockRecord{
			Identity: id,
			Text:     text[m[0]:end],
			Offset:   m[0],
		}, policy)
	}
	return idx
}

func (x *BlockIndex) put(rec TestBlockRecord, policy Policy) {
	if _, exists := x.blocks[rec.Identity]; exists {
		if policy == FirstWins {
			return
		}
	} else {
		x.order = append(x.order, rec.Identity)
	}
	x.blocks[rec.Identity] = rec
}

// Keys returns the claimed identities in first-insertion order.
func (x *BlockIndex) Keys() []string {
	out := make([]string, len(x.order))
	copy(out, x.order)
	return out
}

// Get returns the block claiming exactly identity.
func (x *BlockIndex) Get(identity string) (TestBlockRecord, bool) {
	rec, ok := x.blocks[identity]
	return rec, ok
}

// Blocks returns the indexed blocks in key order.
func (x *BlockIndex) Blocks() []TestBlockRecord {
	out := make([]TestBlockRecord, 0, len(x.order))
	for _, k := range x.order {
		out = append(out, x.blocks[k])
	}
	return out
}

// Len returns the number of distinct identities.
func (x *BlockIndex) Len() int {
	if x == nil {
		return 0
	}
	return len(x.order)
}

// matchEnd returns the offset just past the end that closes the block opened
// at start. An unclosed block runs to the end of text.
func matchEnd(text string, start int) int {
	depth := 0
	pos := start
	for pos < len(text) {
		lineEnd := strings.IndexByte(text[pos:], '\n')
		if lineEnd < 0 {
			lineEnd = len(text)
		} else {
			lineEnd += pos
		}

		line := sanitize(text[pos:lineEnd])
		words := wordPattern.FindAllStringIndex(line, -1)
		first := firstWord(line, words)

		skipDo := false
		if lineOpeners[first] && pos != start {
			depth++
			skipDo = loopOpeners[first]
		}

		for _, w := range words {
			if !isKeyword(line, w) {
				continue
			}
			switch line[w[0]:w[1]] {
			case "do":
				if !skipDo {
					depth++
				}
			case "end":
				depth--
				if depth == 0 {
					return pos + w[1]
				}
			}
		}

		pos = lineEnd + 1
	}
	return len(text)
}

// sanitize blanks string literal contents and comments so that keywords
// inside them are not counted. The result has the same length as line.
func sanitize(line string) string {
	b := []byte(line)
	var quote byte
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case quote != 0:
			if c == '\\' && i+1 < len(b) {
				b[i], b[i+1] = ' ', ' '
				i++
				continue
			}
			if c == quote {
				quote = 0
				continue
			}
			b[i] = ' '
		case c == '\'' || c == '"':
			quote = c
		case c == '#':
			for j := i; j < len(b); j++ {
				b[j] = ' '
			}
			return string(b)
		}
	}
	return string(b)
}

func firstWord(line string, words [][]int) string {
	if len(words) == 0 {
		return ""
	}
	w := words[0]
	if strings.TrimSpace(line[:w[0]]) != "" {
		return ""
	}
	return line[w[0]:w[1]]
}

// isKeyword rejects method calls (.end), symbols (:do) and hash keys (do:).
func isKeyword(line string, w []int) bool {
	if w[0] > 0 {
		switch line[w[0]-1] {
		case '.', ':', '@', '$':
			return false
		}
	}
	if w[1] < len(line) && line[w[1]] == ':' {
		return false
	}
	return true
}
