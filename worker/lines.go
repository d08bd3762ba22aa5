package worker

import (
	"bytes"

	internalstrings "github.com/boardroom-ai/boardroom/internal/strings"
)

// lineWriter splits a byte stream into lines and hands each completed line to
// emit. One instance serves one stream; stdout and stderr get their own so
// interleaved writes never corrupt a line.
type lineWriter struct {
	emit    func(string)
	pending bytes.Buffer
}

func newLineWriter(emit func(string)) *lineWriter {
	return &lineWriter{emit: emit}
}

func (w *lineWriter) Write(data []byte) (int, error) {
	w.pending.Write(data)
	for {
		line, err := w.pending.ReadString('\n')
		if err != nil {
			// Partial line; keep it buffered for the next write.
			w.pending.WriteString(line)
			break
		}
		w.emitLine(line)
	}
	return len(data), nil
}

// Flush emits any trailing partial line. Called after the stream closes.
func (w *lineWriter) Flush() {
	if w.pending.Len() == 0 {
		return
	}
	line := w.pending.String()
	w.pending.Reset()
	w.emitLine(line)
}

func (w *lineWriter) emitLine(line string) {
	line = internalstrings.TrimTrailingNewlines(line)
	if line == "" {
		return
	}
	w.emit(line)
}
