package msg

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var out io.Writer = color.Output

// SetOutput redirects all messages to w and returns the previous writer
func SetOutput(w io.Writer) io.Writer {
	prev := out
	out = w
	return prev
}

func emit(level string, format string, a ...any) {
	fmt.Fprintf(out, "%s: %s\n", level, fmt.Sprintf(format, a...))
}

func Error(format string, a ...any) {
	emit(color.HiRedString("error"), format, a...)
}

func Warn(format string, a ...any) {
	emit(color.YellowString("warn"), format, a...)
}

func Fatal(format string, a ...any) {
	emit(color.RedString("fatal"), format, a...)
	os.Exit(1)
}

func Info(format string, a ...any) {
	emit(color.HiGreenString("info"), format, a...)
}

type IndentWriter struct {
	Indent    string
	W         io.Writer
	didIndent bool
}

func (w *IndentWriter) Write(p []byte) (n int, err error) {
	var buf bytes.Buffer
	for _, c := range p {
		if !w.didIndent {
			buf.WriteString(w.Indent)
			w.didIndent = true
		}
		buf.WriteByte(c)
		if c == '\n' || c == '\r' {
			w.didIndent = false
		}
	}
	if _, err := w.W.Write(buf.Bytes()); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Tail writes the last n lines of data to w, indented
func Tail(w io.Writer, data []byte, n int, indent string) {
	data = bytes.TrimRight(data, "\n")
	if len(data) == 0 {
		return
	}
	lines := bytes.Split(data, []byte{'\n'})
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	iw := &IndentWriter{Indent: indent, W: w}
	for _, line := range lines {
		iw.Write(line)
		iw.Write([]byte{'\n'})
	}
}

// Writer returns the writer messages currently go to
func Writer() io.Writer { return out }
