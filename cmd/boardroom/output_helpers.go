package main

import (
	"encoding/json"
	"io"
	"os"
)

func encodeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func encodeJSONToStdout(value any) error {
	return encodeJSON(os.Stdout, value)
}
