package test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/kylelemons/godebug/diff"

	"github.com/dat2/rpack/internal/logging"
)

func AssertEqual(t *testing.T, a interface{}, b interface{}) {
	t.Helper()
	if a != b {
		stringA := fmt.Sprintf("%v", a)
		stringB := fmt.Sprintf("%v", b)
		if strings.Contains(stringA, "\n") || strings.Contains(stringB, "\n") {
			t.Fatal(diff.Diff(stringB, stringA))
		} else {
			t.Fatalf("%s != %s", stringA, stringB)
		}
	}
}

func SourceForTest(contents string) logging.Source {
	return logging.Source{
		KeyPath:    "<stdin>",
		PrettyPath: "<stdin>",
		Contents:   contents,
	}
}

// Renders messages the way they appear on a terminal without colors or
// source excerpts, which keeps expectations in tests short.
func MsgsToString(msgs []logging.Msg) string {
	text := ""
	for _, msg := range msgs {
		text += msg.String(logging.StderrOptions{}, logging.TerminalInfo{})
	}
	return text
}
