package scanner

// HTML and CSS files take part in the dependency graph but are not parsed
// into an AST. These scanners only pull out the paths they reference so the
// bundler can load those files too.

import (
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"github.com/tdewolff/parse/v2/html"

	"github.com/dat2/rpack/internal/logging"
)

type Dependency struct {
	// The reference exactly as written, without quotes
	Specifier string

	// The location of the reference in the file
	Range logging.Range
}

// References that point outside of the project are left alone
func IsExternal(ref string) bool {
	return ref == "" ||
		strings.HasPrefix(ref, "//") ||
		strings.HasPrefix(ref, "#") ||
		strings.HasPrefix(ref, "data:") ||
		strings.Contains(ref, "://")
}

func unquote(text string) (string, int32) {
	if len(text) >= 2 && (text[0] == '"' || text[0] == '\'') && text[len(text)-1] == text[0] {
		return text[1 : len(text)-1], 1
	}
	return text, 0
}

// The text may be quoted and may have surrounding whitespace. The start is
// the offset of the text in the file.
func addDependency(deps []Dependency, text string, start int) []Dependency {
	trimmed := strings.TrimSpace(text)
	start += strings.Index(text, trimmed)
	value, quote := unquote(trimmed)
	start += int(quote)
	if IsExternal(value) {
		return deps
	}
	return append(deps, Dependency{
		Specifier: value,
		Range:     logging.Range{Loc: logging.Loc{Start: int32(start)}, Len: int32(len(value))},
	})
}

type htmlTag struct {
	name  string
	attrs map[string]htmlAttr
}

type htmlAttr struct {
	value string
	start int
}

// The lexer keeps the quotes around attribute values
func (attr htmlAttr) is(text string) bool {
	value, _ := unquote(strings.TrimSpace(attr.value))
	return strings.EqualFold(strings.TrimSpace(value), text)
}

// Finds "<link rel=stylesheet href>" and "<script src>" references. Scripts
// with a type other than "text/javascript" are ignored.
func ScanHTML(log logging.Log, source logging.Source) ([]Dependency, bool) {
	deps := []Dependency{}
	lexer := html.NewLexer(parse.NewInputString(source.Contents))
	offset := 0
	var tag *htmlTag

	finishTag := func() {
		if tag == nil {
			return
		}
		switch tag.name {
		case "link":
			if rel, ok := tag.attrs["rel"]; ok && rel.is("stylesheet") {
				if href, ok := tag.attrs["href"]; ok {
					deps = addDependency(deps, href.value, href.start)
				}
			}

		case "script":
			if kind, ok := tag.attrs["type"]; !ok || kind.is("text/javascript") {
				if src, ok := tag.attrs["src"]; ok {
					deps = addDependency(deps, src.value, src.start)
				}
			}
		}
		tag = nil
	}

	for {
		tokenType, data := lexer.Next()
		start := offset
		offset += len(data)

		switch tokenType {
		case html.ErrorToken:
			finishTag()
			if err := lexer.Err(); err != io.EOF {
				log.AddError(source, logging.Loc{Start: int32(clamp(start, len(source.Contents)))},
					fmt.Sprintf("Invalid HTML: %s", err.Error()))
				return nil, false
			}
			return deps, true

		case html.StartTagToken:
			finishTag()
			tag = &htmlTag{
				name:  strings.ToLower(string(lexer.Text())),
				attrs: make(map[string]htmlAttr),
			}

		case html.AttributeToken:
			if tag != nil {
				key := strings.ToLower(string(lexer.Text()))
				value := string(lexer.AttrVal())
				valueStart := start
				if i := strings.LastIndex(string(data), value); i != -1 && value != "" {
					valueStart += i
				}
				if _, ok := tag.attrs[key]; !ok {
					tag.attrs[key] = htmlAttr{value: value, start: valueStart}
				}
			}

		case html.StartTagCloseToken, html.StartTagVoidToken:
			finishTag()
		}
	}
}

// Finds "@import" references, which may be a string or a "url()"
func ScanCSS(log logging.Log, source logging.Source) ([]Dependency, bool) {
	deps := []Dependency{}
	lexer := css.NewLexer(parse.NewInputString(source.Contents))
	offset := 0
	inImport := false

	for {
		tokenType, data := lexer.Next()
		start := offset
		offset += len(data)

		switch tokenType {
		case css.ErrorToken:
			if err := lexer.Err(); err != io.EOF {
				log.AddError(source, logging.Loc{Start: int32(clamp(start, len(source.Contents)))},
					fmt.Sprintf("Invalid CSS: %s", err.Error()))
				return nil, false
			}
			return deps, true

		case css.AtKeywordToken:
			inImport = strings.EqualFold(string(data), "@import")

		case css.WhitespaceToken, css.CommentToken:

		case css.StringToken:
			if inImport {
				deps = addDependency(deps, string(data), start)
			}
			inImport = false

		case css.URLToken:
			if inImport {
				text := string(data)
				if len(text) >= 5 && strings.EqualFold(text[:4], "url(") && text[len(text)-1] == ')' {
					deps = addDependency(deps, text[4:len(text)-1], start+4)
				}
			}
			inImport = false

		case css.FunctionToken:
			// "url(" followed by a quoted string is lexed as a function call
			if !inImport || !strings.EqualFold(string(data), "url(") {
				inImport = false
			}

		default:
			inImport = false
		}
	}
}

func clamp(offset int, length int) int {
	if offset > length {
		return length
	}
	return offset
}
