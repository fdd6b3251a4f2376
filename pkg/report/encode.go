package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatMsgpack = "msgpack"
	FormatFdupes  = "fdupes"
	FormatSQLite  = "sqlite"
	FormatHuman   = "human"
)

// Encoder writes a report to a stream
type Encoder func(w io.Writer, r *Report) error

var encoders = map[string]Encoder{
	FormatJSON:    EncodeJSON,
	FormatYAML:    EncodeYAML,
	FormatMsgpack: EncodeMsgpack,
	FormatFdupes:  EncodeFdupes,
	FormatHuman:   EncodeHuman,
}

// EncoderFor returns the stream encoder for format. sqlite has none; it
// needs a file (see WriteSQLite).
func EncoderFor(format string) (Encoder, error) {
	enc, ok := encoders[strings.ToLower(format)]
	if !ok {
		if strings.EqualFold(format, FormatSQLite) {
			return nil, fmt.Errorf("sqlite output must be written to a file")
		}
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
	return enc, nil
}

// EncodeJSON writes the report as indented JSON
func EncodeJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// EncodeYAML writes the report as a YAML document
func EncodeYAML(w io.Writer, r *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

// EncodeMsgpack writes the report as MessagePack
func EncodeMsgpack(w io.Writer, r *Report) error {
	return msgpack.NewEncoder(w).Encode(r)
}
