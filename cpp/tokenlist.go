package cpp

// tokenList is a doubly linked list of tokens. The tokens live in an arena
// and are linked by index, so the list is cheap to copy around and holds no
// pointers between its nodes.
type tokenList struct {
	arena []Token
	links []tokenLink
	head  int
	tail  int
	size  int
}

type tokenLink struct {
	prev, next int
}

const noToken = -1

func newTokenList() *tokenList {
	return &tokenList{head: noToken, tail: noToken}
}

func (tl *tokenList) isEmpty() bool {
	return tl.size == 0
}

func (tl *tokenList) len() int {
	return tl.size
}

func (tl *tokenList) first() int {
	return tl.head
}

func (tl *tokenList) last() int {
	return tl.tail
}

func (tl *tokenList) next(i int) int {
	return tl.links[i].next
}

// at returns the token at index i. The pointer is only valid until the next
// append.
func (tl *tokenList) at(i int) *Token {
	return &tl.arena[i]
}

func (tl *tokenList) append(tok Token) int {
	i := len(tl.arena)
	tl.arena = append(tl.arena, tok)
	tl.links = append(tl.links, tokenLink{prev: tl.tail, next: noToken})
	if tl.tail == noToken {
		tl.head = i
	} else {
		tl.links[tl.tail].next = i
	}
	tl.tail = i
	tl.size++
	return i
}

func (tl *tokenList) removeLast() Token {
	if tl.isEmpty() {
		panic("internal error")
	}
	i := tl.tail
	tok := tl.arena[i]
	tl.tail = tl.links[i].prev
	if tl.tail == noToken {
		tl.head = noToken
	} else {
		tl.links[tl.tail].next = noToken
	}
	tl.size--
	// Reclaim the slot when it is at the end of the arena.
	if i == len(tl.arena)-1 {
		tl.arena = tl.arena[:i]
		tl.links = tl.links[:i]
	}
	return tok
}

func (tl *tokenList) appendList(toAdd *tokenList) {
	for i := toAdd.first(); i != noToken; i = toAdd.next(i) {
		tl.append(*toAdd.at(i))
	}
}

// tokens returns the list contents in order.
func (tl *tokenList) tokens() []Token {
	ret := make([]Token, 0, tl.size)
	for i := tl.head; i != noToken; i = tl.next(i) {
		ret = append(ret, tl.arena[i])
	}
	return ret
}
