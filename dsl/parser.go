// Package dsl parses label sheet files:
//
//	sheet AssetTags v1 {
//	  page A5 landscape
//	  field ID x 12mm y 15mm width 35mm {
//	    label { source: "Name" }
//	  }
//	}
package dsl

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	sheetLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `-?(?:\d+\.\d+|\d+)(?:pt|mm|cm|in)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Punct", Pattern: `[\[\],;:]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	kindNames   = tokenKinds(sheetLexer.Symbols())
	newlineType = tokenType("Newline")
	lbraceType  = tokenType("LBrace")
	rbraceType  = tokenType("RBrace")
	punctType   = tokenType("Punct")
	stringType  = tokenType("String")

	sheetParser = participle.MustBuild[Document](
		participle.Lexer(sheetLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// Document is the root AST node for a label sheet file.
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"Newline* 'sheet' @Ident"`
	Version  string         `parser:"@Ident?"`
	Sections []*Section     `parser:"'{' Newline* ( @@ Newline* )* '}' Newline*"`
}

// Section is one top-level entry: meta, defaults, page or field.
type Section struct {
	Meta     *MetaSection     `parser:"  @@"`
	Defaults *DefaultsSection `parser:"| @@"`
	Page     *PageSection     `parser:"| @@"`
	Field    *FieldSection    `parser:"| @@"`
}

// Kind returns the section keyword.
func (s *Section) Kind() string {
	switch {
	case s == nil:
		return "unknown"
	case s.Meta != nil:
		return "meta"
	case s.Defaults != nil:
		return "defaults"
	case s.Page != nil:
		return "page"
	case s.Field != nil:
		return "field"
	default:
		return "unknown"
	}
}

// MetaSection holds document information (title, author, ...).
type MetaSection struct {
	Block *Block `parser:"'meta' Newline* @@"`
}

// DefaultsSection holds values applied to every field that does not set them.
type DefaultsSection struct {
	Block *Block `parser:"'defaults' Newline* @@"`
}

// PageSection selects the page geometry, eg: `page A4 landscape` or
// `page custom 100mm 150mm`.
type PageSection struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Size   string         `parser:"'page' @Ident"`
	Params []*Arg         `parser:"@@*"`
}

// FieldSection declares one placement. The name is an identifier or a quoted
// column name; header arguments are key/value pairs (x 10mm y 20mm ...).
type FieldSection struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  *Arg           `parser:"'field' @@"`
	Args  []*Arg         `parser:"@@*"`
	Block *Block         `parser:"( Newline* @@ )?"`
}

// Block is a braced list of statements separated by newlines or semicolons.
type Block struct {
	Statements []*Statement `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Statement is either `key: value` or a nested `name { ... }` group.
type Statement struct {
	Property *Property `parser:"  @@"`
	Group    *Group    `parser:"| @@"`
}

// Property is a `key: value` pair.
type Property struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Key   string         `parser:"@Ident ':'"`
	Value *Value         `parser:"Newline* @@"`
}

// Group is a named nested block such as `label { ... }`.
type Group struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"@Ident"`
	Block *Block         `parser:"Newline* @@"`
}

// Value is a property value.
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	List   *List          `parser:"| @@"`
	Word   *string        `parser:"| @Ident"`
}

// Text returns the scalar value as written, strings unquoted. Lists are
// joined with ", ".
func (v *Value) Text() string {
	switch {
	case v == nil:
		return ""
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Color != nil:
		return *v.Color
	case v.Word != nil:
		return *v.Word
	case v.List != nil:
		return strings.Join(v.Strings(), ", ")
	default:
		return ""
	}
}

// Strings flattens a list value; a scalar becomes a one-element slice.
// Empty items are dropped.
func (v *Value) Strings() []string {
	if v == nil {
		return nil
	}
	if v.List == nil {
		if s := v.Text(); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(v.List.Items))
	for _, item := range v.List.Items {
		if s := item.Text(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// List captures `[a, b]`; items may also be separated by newlines.
type List struct {
	Items []*Value `parser:"'[' Newline* ( @@ ( (',' | Newline+) Newline* @@ )* )? Newline* ']'"`
}

// Arg is one header token of a page or field line.
type Arg struct {
	Kind  string         `json:"kind"`
	Value string         `json:"value"`
	Pos   lexer.Position `json:"-"`
}

// Parse implements participle.Parseable: an Arg is any token up to the end
// of the line, an opening brace or a semicolon.
func (a *Arg) Parse(lex *lexer.PeekingLexer) error {
	if endOfHeader(lex.Peek()) {
		return participle.NextMatch
	}
	tok := lex.Next()
	val := tok.Value
	if tok.Type == stringType {
		unquoted, err := strconv.Unquote(tok.Value)
		if err != nil {
			return participle.Errorf(tok.Pos, "invalid string %s: %v", tok.Value, err)
		}
		val = unquoted
	}
	*a = Arg{Kind: kindNames[tok.Type], Value: val, Pos: tok.Pos}
	return nil
}

func endOfHeader(tok *lexer.Token) bool {
	if tok == nil || tok.EOF() {
		return true
	}
	switch tok.Type {
	case newlineType, lbraceType, rbraceType:
		return true
	case punctType:
		return tok.Value == ";"
	default:
		return false
	}
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// Parse parses a sheet from r.
func Parse(r io.Reader) (*Document, error) {
	return sheetParser.Parse("", r)
}

// ParseString parses a sheet held in memory.
func ParseString(input string) (*Document, error) {
	return sheetParser.ParseString("", input)
}

// ParseFile parses the sheet at path; error positions carry the file name.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return sheetParser.Parse(path, f)
}

// Fields returns the field sections in declaration order.
func (d *Document) Fields() []*FieldSection {
	var out []*FieldSection
	for _, s := range d.Sections {
		if s.Field != nil {
			out = append(out, s.Field)
		}
	}
	return out
}

// FirstPage returns the first page section, or nil.
func (d *Document) FirstPage() *PageSection {
	for _, s := range d.Sections {
		if s.Page != nil {
			return s.Page
		}
	}
	return nil
}

func tokenKinds(symbols map[string]lexer.TokenType) map[lexer.TokenType]string {
	out := make(map[lexer.TokenType]string, len(symbols))
	for name, tt := range symbols {
		out[tt] = name
	}
	return out
}

func tokenType(name string) lexer.TokenType {
	tt, ok := sheetLexer.Symbols()[name]
	if !ok {
		panic(fmt.Sprintf("token %s not defined", name))
	}
	return tt
}
