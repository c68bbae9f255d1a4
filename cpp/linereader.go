package cpp

import (
	"io"

	"github.com/pkg/errors"
)

// LineReader splits its input into physical lines and joins lines on request
// so that a backslash-newline splice yields a single logical line. The
// offset of every splice is remembered so positions inside a logical line can
// be mapped back to physical line and column numbers.
type LineReader struct {
	input io.Reader
	buf   []byte

	lineStart, limit int
	lineEnd          int
	consumePos       int
	inputEOF         bool
	linesEOF         bool

	startLineNumber int
	curLineNumber   int

	// Offsets (relative to lineStart) where appended physical lines begin.
	lineMap []int
}

func NewLineReader(r io.Reader, bufSize int) *LineReader {
	if bufSize < 16 {
		bufSize = 16
	}
	return &LineReader{
		input:   r,
		buf:     make([]byte, bufSize),
		lineMap: make([]int, 0, 32),
	}
}

// fill reads more input into the buffer, compacting or growing it first if
// it is full. It reports whether any new bytes arrived.
func (lr *LineReader) fill() (bool, error) {
	if lr.inputEOF {
		return false, nil
	}
	if lr.limit == len(lr.buf) {
		switch {
		case lr.lineStart == lr.limit:
			lr.limit = 0
			lr.lineStart = 0
		case lr.lineStart > 0:
			n := copy(lr.buf, lr.buf[lr.lineStart:lr.limit])
			lr.lineStart = 0
			lr.limit = n
		default:
			nbuf := make([]byte, len(lr.buf)*2)
			copy(nbuf, lr.buf)
			lr.buf = nbuf
		}
	}
	for {
		n, err := lr.input.Read(lr.buf[lr.limit:])
		lr.limit += n
		if err == io.EOF {
			lr.inputEOF = true
			return n > 0, nil
		}
		if err != nil {
			return n > 0, errors.Wrap(err, "read failed")
		}
		if n > 0 {
			return true, nil
		}
	}
}

// scanLine finds the end of the physical line starting ofs bytes after
// lineStart, filling the buffer as needed.
func (lr *LineReader) scanLine(ofs int) error {
	for {
		i := lr.lineStart + ofs
		for i < lr.limit && lr.buf[i] != '\n' {
			i++
		}
		if i < lr.limit {
			lr.lineEnd = i + 1
			break
		}
		ofs = i - lr.lineStart
		more, err := lr.fill()
		if err != nil {
			return err
		}
		if !more {
			lr.lineEnd = lr.limit
			lr.linesEOF = true
			break
		}
	}
	lr.consumePos = lr.lineEnd
	return nil
}

// ReadNextLine consumes the current line and makes the next physical line
// current. It returns false once all lines have been read.
func (lr *LineReader) ReadNextLine() (bool, error) {
	if lr.linesEOF {
		return false, nil
	}
	lr.lineStart = lr.consumePos
	lr.curLineNumber++
	lr.startLineNumber = lr.curLineNumber
	lr.lineMap = lr.lineMap[:0]
	if err := lr.scanLine(0); err != nil {
		return false, err
	}
	return true, nil
}

// AppendNextLine reads the next physical line and copies it over the
// current line starting at at, which is usually the position of a
// backslash. It returns false if there is no next line.
func (lr *LineReader) AppendNextLine(at int) (bool, error) {
	if lr.linesEOF {
		return false, nil
	}
	lr.curLineNumber++
	at -= lr.lineStart
	lr.lineMap = append(lr.lineMap, at)

	newStartOfs := lr.consumePos - lr.lineStart
	if err := lr.scanLine(newStartOfs); err != nil {
		return false, err
	}

	newStart := lr.lineStart + newStartOfs
	newLen := lr.lineEnd - newStart
	at += lr.lineStart
	if newLen > 0 {
		copy(lr.buf[at:], lr.buf[newStart:lr.lineEnd])
	}
	lr.lineEnd = at + newLen
	return true, nil
}

// LineBuf is only valid until the next call to ReadNextLine or AppendNextLine.
func (lr *LineReader) LineBuf() []byte { return lr.buf }

func (lr *LineReader) LineStart() int { return lr.lineStart }

func (lr *LineReader) LineEnd() int { return lr.lineEnd }

func (lr *LineReader) CurLineNumber() int { return lr.curLineNumber }

// CalcPos maps a buffer position on the current logical line to a physical
// line and column.
func (lr *LineReader) CalcPos(pos int) (line, col int) {
	pos -= lr.lineStart
	line = lr.startLineNumber
	for i := len(lr.lineMap) - 1; i >= 0; i-- {
		if pos >= lr.lineMap[i] {
			pos -= lr.lineMap[i]
			line += i + 1
			break
		}
	}
	return line, pos + 1
}

// CalcRange maps the buffer span [from, to) to a source range in file.
func (lr *LineReader) CalcRange(file string, from, to int) SourceRange {
	var rng SourceRange
	rng.Begin.File = file
	rng.Begin.Line, rng.Begin.Col = lr.CalcPos(from)
	if to > from {
		rng.End.File = file
		rng.End.Line, rng.End.Col = lr.CalcPos(to - 1)
		rng.End.Col++
	} else {
		rng.End = rng.Begin
	}
	return rng
}
