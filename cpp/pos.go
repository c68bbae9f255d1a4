package cpp

import "fmt"

type FilePos struct {
	File string
	Line int
	Col  int
}

func (pos FilePos) String() string {
	return fmt.Sprintf("%s:%d:%d", pos.File, pos.Line, pos.Col)
}

func (pos FilePos) before(o FilePos) bool {
	if pos.Line != o.Line {
		return pos.Line < o.Line
	}
	return pos.Col < o.Col
}

// SourceRange covers [Begin, End) of a token or construct. End.Col is one
// past the last character.
type SourceRange struct {
	Begin FilePos
	End   FilePos
}

func (r SourceRange) IsZero() bool {
	return r.Begin.Line == 0
}

// Extend moves the end of r to the end of o.
func (r *SourceRange) Extend(o SourceRange) {
	r.End = o.End
}

// Union grows r to cover o. Ranges from different files are left alone.
func (r *SourceRange) Union(o SourceRange) {
	if r.IsZero() {
		*r = o
		return
	}
	if o.IsZero() || o.Begin.File != r.Begin.File {
		return
	}
	if o.Begin.before(r.Begin) {
		r.Begin = o.Begin
	}
	if r.End.before(o.End) {
		r.End = o.End
	}
}

func (r SourceRange) String() string {
	if r.End.Line == 0 || r.End == r.Begin {
		return r.Begin.String()
	}
	if r.End.Line == r.Begin.Line {
		return fmt.Sprintf("%s-%d", r.Begin, r.End.Col)
	}
	return fmt.Sprintf("%s-%d:%d", r.Begin, r.End.Line, r.End.Col)
}
