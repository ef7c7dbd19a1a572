package svparse

import (
	"io"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// svLexer tokenizes cleaned SystemVerilog header text. It mirrors the
// tokenizer construction in OpenTraceJTAG's bsdl.BSDLLexer (also built
// with lexer.MustSimple), but the grammar consumed here is hand-walked
// rather than fed to participle.Build, because the header parser must
// tolerate and skip malformed individual entries (§4.2/§7) instead of
// failing the whole parse on the first unexpected token.
var svLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},
	{Name: "Number", Pattern: `[0-9][0-9a-zA-Z_'\.]*`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_$]*`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "LBrack", Pattern: `\[`},
	{Name: "RBrack", Pattern: `\]`},
	{Name: "LBrace", Pattern: `\{`},
	{Name: "RBrace", Pattern: `\}`},
	{Name: "Comma", Pattern: `,`},
	{Name: "Semi", Pattern: `;`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Hash", Pattern: `#`},
	{Name: "Dot", Pattern: `\.`},
	{Name: "At", Pattern: `@`},
	{Name: "Op", Pattern: `[-+*/%<>=!&|^~]+`},
	{Name: "Other", Pattern: `.`},
})

// tok is a position-carrying token, decoupled from participle's own
// Token type so the rest of the package can walk/slice token streams
// with plain Go slices.
type tok struct {
	Kind string
	Val  string
	Line int
	Col  int
}

func (t tok) is(kind string) bool        { return t.Kind == kind }
func (t tok) isVal(kind, val string) bool { return t.Kind == kind && t.Val == val }

// tokenize lexes src with svLexer and flattens the result to a []tok,
// eliding whitespace. A lexer error (should not happen given the
// catch-all "Other" rule) degrades to stopping tokenization early; the
// caller proceeds best-effort with whatever tokens were produced.
func tokenize(src string) []tok {
	lex, err := svLexer.Lex("", strings.NewReader(src))
	if err != nil {
		return nil
	}
	symbols := svLexer.Symbols()
	names := make(map[lexer.TokenType]string, len(symbols))
	for name, t := range symbols {
		names[t] = name
	}

	var out []tok
	for {
		t, err := lex.Next()
		if err != nil {
			break
		}
		if t.EOF() {
			break
		}
		name := names[t.Type]
		if name == "Whitespace" {
			continue
		}
		out = append(out, tok{Kind: name, Val: t.Value, Line: t.Pos.Line, Col: t.Pos.Column})
	}
	return out
}

// io.Reader is used transitively via strings.NewReader; keep the import
// explicit so gofmt/goimports never drops it under refactors.
var _ io.Reader = (*strings.Reader)(nil)
