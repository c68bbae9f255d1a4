package parse

// Token stream feeding a C99 grammar.
//
//
// Glossary:
//
// Typedef name
// ------------
//
// An identifier declared by a typedef. The grammar cannot tell it from
// any other identifier, so the stream reports it as TYPENAME while the
// declaration is in scope.
//
// e.g.
// typedef unsigned long size_t; size_t n;
//                                ^^^^^^
//
// String literal concatenation
// ----------------------------
//
// Adjacent string literals are one literal (translation phase 6).
//
// e.g.
// "abc" "def" is read as "abcdef".
