package transfer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gestorventas/deposito/pkg/errorbank"
)

// Separator is the field delimiter of every exchanged file.
const Separator = ';'

var bom = []byte("\xEF\xBB\xBF")

// record is one data row with its 1-based line in the source (header = 1).
type record struct {
	line   int
	fields []string
}

// field returns the trimmed value at i, or "" when the row is shorter.
func (r record) field(i int) string {
	if i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r record) blank() bool {
	for _, f := range r.fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// readRecords parses a semicolon-delimited source. The header is required
// and discarded; blank rows are skipped; rows shorter than minColumns fail
// with a validation error naming their line.
func readRecords(src io.Reader, minColumns int) ([]record, error) {
	br := bufio.NewReader(src)
	if head, err := br.Peek(len(bom)); err == nil && bytes.Equal(head, bom) {
		_, _ = br.Discard(len(bom))
	}

	reader := csv.NewReader(br)
	reader.Comma = Separator
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errorbank.InvalidArgument("input is empty")
		}
		return nil, parseFailure(err)
	}

	var records []record
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseFailure(err)
		}
		line, _ := reader.FieldPos(0)
		rec := record{line: line, fields: fields}
		if rec.blank() {
			continue
		}
		if len(fields) < minColumns {
			return nil, errorbank.Validation(line,
				fmt.Sprintf("expected at least %d columns, got %d", minColumns, len(fields)))
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, errorbank.InvalidArgument("input has no records")
	}
	return records, nil
}

func parseFailure(err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return errorbank.Validation(perr.StartLine, perr.Err.Error(), errorbank.WithCause(err))
	}
	return errorbank.InvalidArgument("unreadable input", errorbank.WithCause(err))
}

// writeRecords emits a BOM, the header and rows.
func writeRecords(dst io.Writer, header []string, rows [][]string) error {
	if _, err := dst.Write(bom); err != nil {
		return err
	}
	writer := csv.NewWriter(dst)
	writer.Comma = Separator
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return writer.Error()
}
