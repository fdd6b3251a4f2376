package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vmihailenco/msgpack"
	"gopkg.in/yaml.v3"
)

// Load reads a report written by FileSink. An empty format is detected
// from the file extension. fdupes and human output cannot be read back.
func Load(path, format string) (*Report, error) {
	if format == "" {
		detected, err := DetectFormat(path)
		if err != nil {
			return nil, err
		}
		format = detected
	}
	format = strings.ToLower(format)

	if format == FormatSQLite {
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
		r, err := ReadSQLite(path)
		if err != nil {
			return nil, err
		}
		if err := r.Check(); err != nil {
			return nil, err
		}
		return r, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, format)
}

// Decode reads a json, yaml or msgpack report from rd
func Decode(rd io.Reader, format string) (*Report, error) {
	r := &Report{}
	var err error
	switch strings.ToLower(format) {
	case FormatJSON:
		err = json.NewDecoder(rd).Decode(r)
	case FormatYAML:
		err = yaml.NewDecoder(rd).Decode(r)
	case FormatMsgpack:
		err = msgpack.NewDecoder(rd).Decode(r)
	default:
		return nil, fmt.Errorf("cannot read %s reports", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s report: %w", format, err)
	}
	if err := r.Check(); err != nil {
		return nil, err
	}
	r.normalize()
	return r, nil
}
