package logging

// Diagnostics are modeled after clang's error format. Messages are sent over
// a channel as they happen so that files parsed on different goroutines can
// all report into the same log. Each message carries the line of source text
// it points at.

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

type Loc struct {
	// The 0-based byte offset of this location from the start of the file
	Start int32
}

type Range struct {
	Loc Loc
	Len int32
}

func (r Range) End() int32 {
	return r.Loc.Start + r.Len
}

type Log struct {
	msgs chan Msg
}

type MsgKind uint8

const (
	Error MsgKind = iota
	Warning
)

func (kind MsgKind) String() string {
	if kind == Warning {
		return "warning"
	}
	return "error"
}

type Msg struct {
	Source Source
	Start  int32
	Length int32
	Text   string
	Kind   MsgKind
}

type Source struct {
	// The canonical absolute path used as the module identity
	KeyPath string

	// The path shown to the user, usually relative to the working directory
	PrettyPath string

	Contents string
}

func (s *Source) TextForRange(r Range) string {
	return s.Contents[r.Loc.Start : r.Loc.Start+r.Len]
}

// Returns the range of a quoted string starting at "loc", or an empty range
// if there is no string literal there.
func (s *Source) RangeOfString(loc Loc) Range {
	text := s.Contents[loc.Start:]
	if len(text) == 0 {
		return Range{Loc: loc}
	}

	quote := text[0]
	if quote == '"' || quote == '\'' {
		for i := 1; i < len(text); i++ {
			c := text[i]
			if c == quote {
				return Range{Loc: loc, Len: int32(i + 1)}
			} else if c == '\\' {
				i++
			}
		}
	}

	return Range{Loc: loc}
}

func NewLog(msgs chan Msg) Log {
	return Log{msgs}
}

type MsgCounts struct {
	Errors   int
	Warnings int
}

func plural(prefix string, count int) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, prefix)
	}
	return fmt.Sprintf("%d %ss", count, prefix)
}

func (counts MsgCounts) String() string {
	switch {
	case counts.Errors == 0 && counts.Warnings == 0:
		return "no errors"
	case counts.Errors == 0:
		return plural("warning", counts.Warnings)
	case counts.Warnings == 0:
		return plural("error", counts.Errors)
	default:
		return fmt.Sprintf("%s and %s", plural("warning", counts.Warnings), plural("error", counts.Errors))
	}
}

type TerminalInfo struct {
	IsTTY           bool
	UseColorEscapes bool
	Width           int
}

type StderrColor uint8

const (
	ColorIfTerminal StderrColor = iota
	ColorNever
	ColorAlways
)

type StderrOptions struct {
	IncludeSource bool
	Color         StderrColor
}

// Messages are printed to stderr as soon as they arrive. The returned
// function closes the log, prints a summary if anything was reported, and
// returns the final counts.
func NewStderrLog(options StderrOptions) (Log, func() MsgCounts) {
	msgs := make(chan Msg)
	done := make(chan MsgCounts)
	log := NewLog(msgs)
	terminalInfo := GetTerminalInfo(os.Stderr)

	switch options.Color {
	case ColorNever:
		terminalInfo.UseColorEscapes = false
	case ColorAlways:
		terminalInfo.UseColorEscapes = SupportsColorEscapes
	}

	go func() {
		counts := MsgCounts{}
		for msg := range msgs {
			os.Stderr.WriteString(msg.String(options, terminalInfo))
			switch msg.Kind {
			case Error:
				counts.Errors++
			case Warning:
				counts.Warnings++
			}
		}
		done <- counts
	}()

	return log, func() MsgCounts {
		close(log.msgs)
		counts := <-done
		if counts.Warnings != 0 || counts.Errors != 0 {
			fmt.Fprintf(os.Stderr, "%s\n", counts.String())
		}
		return counts
	}
}

// Messages are buffered and returned in the order they were received when
// the returned function is called. This is used by tests.
func NewDeferLog() (Log, func() []Msg) {
	msgs := make(chan Msg)
	done := make(chan []Msg)
	log := NewLog(msgs)

	go func() {
		result := []Msg{}
		for msg := range msgs {
			result = append(result, msg)
		}
		done <- result
	}()

	return log, func() []Msg {
		close(log.msgs)
		return <-done
	}
}

const colorReset = "\033[0m"
const colorRed = "\033[31m"
const colorGreen = "\033[32m"
const colorMagenta = "\033[35m"
const colorBold = "\033[1m"
const colorResetBold = "\033[0;1m"

func (msg Msg) String(options StderrOptions, terminalInfo TerminalInfo) string {
	kindColor := colorRed
	if msg.Kind == Warning {
		kindColor = colorMagenta
	}

	if msg.Source.PrettyPath == "" {
		if terminalInfo.UseColorEscapes {
			return fmt.Sprintf("%s%s%s: %s%s%s\n",
				colorBold, kindColor, msg.Kind,
				colorResetBold, msg.Text,
				colorReset)
		}
		return fmt.Sprintf("%s: %s\n", msg.Kind, msg.Text)
	}

	if !options.IncludeSource {
		d := detailStruct(msg, terminalInfo)
		if terminalInfo.UseColorEscapes {
			return fmt.Sprintf("%s%s:%d:%d: %s%s: %s%s%s\n",
				colorBold, d.Path, d.Line, d.Column,
				kindColor, d.Kind,
				colorResetBold, d.Message,
				colorReset)
		}
		return fmt.Sprintf("%s:%d:%d: %s: %s\n", d.Path, d.Line, d.Column, d.Kind, d.Message)
	}

	d := detailStruct(msg, terminalInfo)

	if terminalInfo.UseColorEscapes {
		return fmt.Sprintf("%s%s:%d:%d: %s%s: %s%s\n%s%s%s%s%s%s\n%s%s%s%s\n",
			colorBold, d.Path, d.Line, d.Column,
			kindColor, d.Kind,
			colorResetBold, d.Message,
			colorReset, d.SourceBefore, colorGreen, d.SourceMarked, colorReset, d.SourceAfter,
			colorGreen, d.Indent, d.Marker,
			colorReset)
	}

	return fmt.Sprintf("%s:%d:%d: %s: %s\n%s\n%s%s\n",
		d.Path, d.Line, d.Column, d.Kind, d.Message, d.Source, d.Indent, d.Marker)
}

type MsgDetail struct {
	Path    string
	Line    int
	Column  int
	Kind    string
	Message string

	// Source == SourceBefore + SourceMarked + SourceAfter
	Source       string
	SourceBefore string
	SourceMarked string
	SourceAfter  string

	Indent string
	Marker string
}

// Counts lines in "text" treating LF, CR, CRLF, U+2028 and U+2029 as line
// terminators. The column is in bytes from the start of the last line.
func ComputeLineAndColumn(text string) (lineCount int, columnCount int, lastLineStart int) {
	var prevCodePoint rune

	for i, codePoint := range text {
		switch codePoint {
		case '\n':
			lastLineStart = i + 1
			if prevCodePoint != '\r' {
				lineCount++
			}
		case '\r', '\u2028', '\u2029':
			lastLineStart = i + utf8.RuneLen(codePoint)
			lineCount++
		}
		prevCodePoint = codePoint
	}

	columnCount = len(text) - lastLineStart
	return
}

func detailStruct(msg Msg, terminalInfo TerminalInfo) MsgDetail {
	contents := msg.Source.Contents
	start := int(msg.Start)
	if start > len(contents) {
		start = len(contents)
	}
	lineCount, columnCount, lineStart := ComputeLineAndColumn(contents[:start])
	lineEnd := len(contents)

loop:
	for i, codePoint := range contents[lineStart:] {
		switch codePoint {
		case '\r', '\n', '\u2028', '\u2029':
			lineEnd = lineStart + i
			break loop
		}
	}

	const spacesPerTab = 2
	lineText := renderTabStops(contents[lineStart:lineEnd], spacesPerTab)
	indent := strings.Repeat(" ", len(renderTabStops(contents[lineStart:start], spacesPerTab)))
	marker := "^"
	markerStart := len(indent)
	markerEnd := len(indent)

	if msg.Length > 0 {
		end := start + int(msg.Length)
		if end > lineEnd {
			end = lineEnd
		}
		markerEnd = len(renderTabStops(contents[lineStart:end], spacesPerTab))
	}

	if markerStart > len(lineText) {
		markerStart = len(lineText)
	}
	if markerEnd > len(lineText) {
		markerEnd = len(lineText)
	}
	if markerEnd < markerStart {
		markerEnd = markerStart
	}

	// Long lines are trimmed to the terminal width around the marker
	if terminalInfo.Width > 0 && len(lineText) > terminalInfo.Width {
		sliceStart := (markerStart + markerEnd - terminalInfo.Width) / 2
		if sliceStart > markerStart-terminalInfo.Width/5 {
			sliceStart = markerStart - terminalInfo.Width/5
		}
		if sliceStart < 0 {
			sliceStart = 0
		}
		if sliceStart > len(lineText)-terminalInfo.Width {
			sliceStart = len(lineText) - terminalInfo.Width
		}
		sliceEnd := sliceStart + terminalInfo.Width

		slicedLine := lineText[sliceStart:sliceEnd]
		markerStart -= sliceStart
		markerEnd -= sliceStart
		if markerStart < 0 {
			markerStart = 0
		}
		if markerEnd > len(slicedLine) {
			markerEnd = len(slicedLine)
		}

		if len(slicedLine) > 3 && sliceStart > 0 {
			slicedLine = "..." + slicedLine[3:]
			if markerStart < 3 {
				markerStart = 3
			}
		}
		if len(slicedLine) > 3 && sliceEnd < len(lineText) {
			slicedLine = slicedLine[:len(slicedLine)-3] + "..."
			if markerEnd > len(slicedLine)-3 {
				markerEnd = len(slicedLine) - 3
			}
		}
		if markerEnd < markerStart {
			markerEnd = markerStart
		}

		indent = strings.Repeat(" ", markerStart)
		lineText = slicedLine
	}

	if markerEnd-markerStart > 1 {
		marker = strings.Repeat("~", markerEnd-markerStart)
	}

	return MsgDetail{
		Path:    msg.Source.PrettyPath,
		Line:    lineCount + 1,
		Column:  columnCount,
		Kind:    msg.Kind.String(),
		Message: msg.Text,

		Source:       lineText,
		SourceBefore: lineText[:markerStart],
		SourceMarked: lineText[markerStart:markerEnd],
		SourceAfter:  lineText[markerEnd:],

		Indent: indent,
		Marker: marker,
	}
}

func renderTabStops(withTabs string, spacesPerTab int) string {
	if !strings.ContainsRune(withTabs, '\t') {
		return withTabs
	}

	withoutTabs := strings.Builder{}
	count := 0

	for _, c := range withTabs {
		if c == '\t' {
			spaces := spacesPerTab - count%spacesPerTab
			for i := 0; i < spaces; i++ {
				withoutTabs.WriteRune(' ')
				count++
			}
		} else {
			withoutTabs.WriteRune(c)
			count++
		}
	}

	return withoutTabs.String()
}

func (log Log) AddError(source Source, loc Loc, text string) {
	log.msgs <- Msg{Source: source, Start: loc.Start, Text: text, Kind: Error}
}

func (log Log) AddWarning(source Source, loc Loc, text string) {
	log.msgs <- Msg{Source: source, Start: loc.Start, Text: text, Kind: Warning}
}

func (log Log) AddRangeError(source Source, r Range, text string) {
	log.msgs <- Msg{Source: source, Start: r.Loc.Start, Length: r.Len, Text: text, Kind: Error}
}

func (log Log) AddRangeWarning(source Source, r Range, text string) {
	log.msgs <- Msg{Source: source, Start: r.Loc.Start, Length: r.Len, Text: text, Kind: Warning}
}

// Reports a message that has no source location, such as a bad command-line
// argument or a missing entry file.
func (log Log) AddMsg(msg Msg) {
	log.msgs <- msg
}
