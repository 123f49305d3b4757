package swift

import "swift-gateway/pkg/models"

// Parser turns raw MT103 wire text into a structured message. It is safe for
// concurrent use; the pattern table it holds is immutable.
type Parser struct {
	extractor *FieldExtractor
}

// NewParser creates a parser over the default pattern table.
func NewParser() *Parser {
	return NewParserWithTable(DefaultPatternTable())
}

// NewParserWithTable creates a parser over a caller-supplied pattern table.
func NewParserWithTable(table *PatternTable) *Parser {
	return &Parser{extractor: NewFieldExtractor(table)}
}

// Parse splits raw text into blocks, extracts the block 4 fields and returns
// the structured message. The returned message carries every matched block
// and field in its raw field list for diagnostics.
func (p *Parser) Parse(id, raw string) (*models.MT103Message, error) {
	blocks, err := ParseBlocks(raw)
	if err != nil {
		return nil, err
	}

	msg := models.NewMT103Message(id, raw)
	for _, block := range []string{BlockBasicHeader, BlockApplicationHeader, BlockUserHeader, BlockText, BlockTrailer} {
		if content, ok := blocks[block]; ok {
			msg.AddRawField("block"+block, content)
		}
	}

	if err := p.extractor.Extract(msg, blocks[BlockText]); err != nil {
		return nil, err
	}

	msg.Status = models.StatusParsed
	return msg, nil
}
