package swift

import (
	"fmt"
	"regexp"
	"strings"
)

// Block identifiers of the five structural SWIFT message sections.
const (
	BlockBasicHeader       = "1"
	BlockApplicationHeader = "2"
	BlockUserHeader        = "3"
	BlockText              = "4"
	BlockTrailer           = "5"
)

// Blocks maps a block identifier to its raw content.
type Blocks map[string]string

var (
	block1Re = regexp.MustCompile(`\{1:([^{}]*)\}`)
	block2Re = regexp.MustCompile(`\{2:([^{}]*)\}`)
	// blocks 3 and 5 hold nested {tag:value} sub-blocks
	block3Re = regexp.MustCompile(`\{3:((?:\{[^{}]*\})+)\}`)
	block5Re = regexp.MustCompile(`\{5:((?:\{[^{}]*\})+)\}`)
	// block 4 spans multiple lines and is terminated by "-}"
	block4Re = regexp.MustCompile(`(?s)\{4:\s*(.*?)\n?-\}`)
)

// ParseBlocks splits a raw SWIFT message into its blocks. Blocks 1, 2 and 4
// are mandatory and block 2 must indicate message type 103. The function is a
// pure view over the input text.
func ParseBlocks(raw string) (Blocks, error) {
	text := normalizeLineEndings(raw)
	blocks := make(Blocks, 5)

	m1 := block1Re.FindStringSubmatch(text)
	if m1 == nil {
		return nil, missingBlock(BlockBasicHeader)
	}
	blocks[BlockBasicHeader] = m1[1]

	m2 := block2Re.FindStringSubmatch(text)
	if m2 == nil {
		return nil, missingBlock(BlockApplicationHeader)
	}
	blocks[BlockApplicationHeader] = m2[1]

	if mt := messageType(m2[1]); mt != "103" {
		return nil, &ParsingError{
			Block: BlockApplicationHeader,
			Msg:   fmt.Sprintf("unsupported message type %q in block 2, expected 103", mt),
		}
	}

	if m3 := block3Re.FindStringSubmatch(text); m3 != nil {
		blocks[BlockUserHeader] = m3[1]
	}

	m4 := block4Re.FindStringSubmatch(text)
	if m4 == nil {
		return nil, missingBlock(BlockText)
	}
	blocks[BlockText] = strings.TrimRight(m4[1], "\n")

	if m5 := block5Re.FindStringSubmatch(text); m5 != nil {
		blocks[BlockTrailer] = m5[1]
	}

	return blocks, nil
}

func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// messageType pulls the three-digit type out of an application header such as
// "I103BANKDEFFXXXXN" or "O1031200...".
func messageType(block2 string) string {
	s := block2
	if len(s) > 0 && (s[0] == 'I' || s[0] == 'O') {
		s = s[1:]
	}
	if len(s) < 3 {
		return ""
	}
	return s[:3]
}
