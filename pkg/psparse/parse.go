// Package psparse parses the free-text listings PowerShell prints for
// `<cmdlet> | select * | fl` into ordered key/value blocks.
package psparse

import (
	"strings"

	"github.com/containerd/errdefs"
	"github.com/pkg/errors"
)

// ErrNoData is returned by ParseBlock when the text holds no field lines.
var ErrNoData = errors.Wrap(errdefs.ErrNotFound, "no key/value data in output")

type state int

const (
	seekingBlock state = iota
	inBlock
	inContinuation
)

func (s state) String() string {
	switch s {
	case seekingBlock:
		return "seekingBlock"
	case inBlock:
		return "inBlock"
	case inContinuation:
		return "inContinuation"
	}
	return "unknown"
}

type parser struct {
	st      state
	blocks  []*Block
	cur     *Block
	lastKey string
	// indentation of the first field line of cur
	indent int
}

// Parse splits text into blocks. Blocks are separated by blank lines or by a
// field name repeating inside the current block. A line indented further than
// the block's fields continues the previous value; any other line that cannot
// be read as a field is dropped. Text without any field line yields an empty
// result.
func Parse(text string) []*Block {
	p := &parser{}
	for _, line := range splitLines(text) {
		p.feed(line)
	}
	p.endBlock()
	return p.blocks
}

// ParseBlock returns the first block of text, or ErrNoData.
func ParseBlock(text string) (*Block, error) {
	blocks := Parse(text)
	if len(blocks) == 0 {
		return nil, ErrNoData
	}
	return blocks[0], nil
}

func (p *parser) feed(line string) {
	if strings.TrimSpace(line) == "" {
		p.endBlock()
		return
	}
	if isNoise(line) {
		return
	}

	key, value, ok := SplitField(line)
	indent := indentOf(line)

	switch p.st {
	case seekingBlock:
		if ok {
			p.startBlock(key, value, indent)
		}
	case inBlock, inContinuation:
		if ok && indent <= p.indent {
			if p.cur.Has(key) {
				p.endBlock()
				p.startBlock(key, value, indent)
				return
			}
			p.cur.Set(key, value)
			p.lastKey = key
			p.st = inBlock
			return
		}
		if indent > p.indent {
			p.continueValue(strings.TrimSpace(line))
			p.st = inContinuation
			return
		}
		// status and banner lines at field indentation carry no data
		p.st = inBlock
	}
}

func (p *parser) startBlock(key, value string, indent int) {
	p.cur = NewBlock()
	p.cur.Set(key, value)
	p.lastKey = key
	p.indent = indent
	p.st = inBlock
}

func (p *parser) continueValue(s string) {
	v := p.cur.Value(p.lastKey)
	if v == "" {
		v = s
	} else {
		v += "\n" + s
	}
	p.cur.Set(p.lastKey, v)
}

func (p *parser) endBlock() {
	if p.cur != nil && p.cur.Len() > 0 {
		p.blocks = append(p.blocks, p.cur)
	}
	p.cur = nil
	p.lastKey = ""
	p.st = seekingBlock
}
