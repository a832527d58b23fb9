package plant

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	prErrors "github.com/ezoic/plantreco/pkg/errors"
	"github.com/ezoic/plantreco/preprocessing"
)

// ReadFrame decodes a CSV file with a header row into a Frame.
func ReadFrame(path string) (*preprocessing.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, prErrors.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	f, err := DecodeFrame(file)
	if err != nil {
		return nil, prErrors.Wrapf(err, "read %s", path)
	}
	return f, nil
}

// DecodeFrame decodes CSV with a header row. A UTF-8 byte order mark on the
// first header cell is dropped.
func DecodeFrame(r io.Reader) (*preprocessing.Frame, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, prErrors.NewModelError("DecodeFrame", "missing header", prErrors.ErrEmptyData)
	}
	if err != nil {
		return nil, prErrors.Wrap(err, "read header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, prErrors.Wrap(err, "read rows")
	}
	return preprocessing.NewFrame(header, rows)
}

// WriteRecords writes records to path with a header row, creating the parent
// directory when needed. An existing file is replaced.
func WriteRecords(path string, records []Record) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return prErrors.Wrapf(err, "create %s", dir)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return prErrors.Wrapf(err, "create %s", path)
	}
	if err := EncodeRecords(file, records); err != nil {
		_ = file.Close()
		return prErrors.Wrapf(err, "write %s", path)
	}
	return file.Close()
}

// EncodeRecords writes the header and one row per record.
func EncodeRecords(w io.Writer, records []Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Columns); err != nil {
		return err
	}
	for _, r := range records {
		if err := writer.Write(r.row()); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadRecords reads a cleaned dataset.
func ReadRecords(path string) ([]Record, error) {
	f, err := ReadFrame(path)
	if err != nil {
		return nil, err
	}
	records, err := RecordsFromFrame(f)
	if err != nil {
		return nil, prErrors.Wrapf(err, "read %s", path)
	}
	return records, nil
}
