package intron

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Parser reads introns from a BED6 file (chrom, start, end, name, score, strand).
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
}

// NewParser creates a new BED parser for the given file.
// Gzipped input is detected from the magic bytes; "-" reads stdin.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bed file: %w", err)
	}

	p := &Parser{file: file}

	br := bufio.NewReader(file)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(br)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = br
	}

	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
func NewParserFromReader(r io.Reader) *Parser {
	return &Parser{reader: bufio.NewReader(r)}
}

// Next reads the next intron.
// Returns nil, nil when there are no more introns.
func (p *Parser) Next() (*Intron, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read bed line: %w", err)
		}
		if line == "" && err == io.EOF {
			return nil, nil
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if skipLine(line) {
			if err == io.EOF {
				return nil, nil
			}
			continue
		}

		return p.parseLine(line)
	}
}

// skipLine reports whether a line carries no interval.
func skipLine(line string) bool {
	return strings.TrimSpace(line) == "" ||
		strings.HasPrefix(line, "#") ||
		strings.HasPrefix(line, "track") ||
		strings.HasPrefix(line, "browser")
}

func (p *Parser) parseLine(line string) (*Intron, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 6 {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected at least 6 columns, found %d", len(fields)),
		}
	}

	start, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, &ParseError{Line: p.lineNumber, Message: fmt.Sprintf("invalid start: %s", fields[1])}
	}
	end, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return nil, &ParseError{Line: p.lineNumber, Message: fmt.Sprintf("invalid end: %s", fields[2])}
	}
	if start < 0 || end <= start {
		return nil, &ParseError{Line: p.lineNumber, Message: fmt.Sprintf("invalid interval [%d, %d)", start, end)}
	}

	strand := fields[5]
	if strand != StrandPlus && strand != StrandMinus {
		return nil, &ParseError{Line: p.lineNumber, Message: fmt.Sprintf("invalid strand %q", strand)}
	}

	return &Intron{
		Chrom:  fields[0],
		Start:  start,
		End:    end,
		Name:   fields[3],
		Strand: strand,
	}, nil
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ParseError represents an error during BED parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("bed parse error at line %d: %s", e.Line, e.Message)
}
