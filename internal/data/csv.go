package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ohlcvHeader is the only accepted column layout.
var ohlcvHeader = []string{"date", "ticker", "open", "high", "low", "close", "volume"}

// CSVSource reads an OHLCV table from a CSV file.
type CSVSource struct {
	path string
}

// NewCSVSource creates a source for the given file path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Load parses the whole file into a Frame. The header and every row are
// validated against the OHLCV schema; the first bad row aborts the load.
func (s *CSVSource) Load() (*Frame, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()
	return parseCSV(f, s.path)
}

func parseCSV(r io.Reader, name string) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(ohlcvHeader)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}
	for i, col := range ohlcvHeader {
		if header[i] != col {
			return nil, fmt.Errorf("%s: column %d is %q, want %q: %w",
				name, i, header[i], col, ErrSchemaValidation)
		}
	}

	var rows []Row
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w: %v", name, line, ErrSchemaValidation, err)
		}
		row, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w: %v", name, line, ErrSchemaValidation, err)
		}
		rows = append(rows, row)
	}
	return NewFrame(rows), nil
}

func parseRecord(record []string) (Row, error) {
	date, err := time.ParseInLocation("2006-01-02", record[0], time.UTC)
	if err != nil {
		return Row{}, fmt.Errorf("date %q: %v", record[0], err)
	}
	if record[1] == "" {
		return Row{}, fmt.Errorf("empty ticker")
	}

	prices := make([]decimal.Decimal, 4)
	for i, field := range record[2:6] {
		prices[i], err = decimal.NewFromString(field)
		if err != nil {
			return Row{}, fmt.Errorf("%s %q: %v", ohlcvHeader[i+2], field, err)
		}
	}

	volume, err := strconv.ParseInt(record[6], 10, 64)
	if err != nil {
		return Row{}, fmt.Errorf("volume %q: %v", record[6], err)
	}

	return Row{
		Date:   date,
		Ticker: record[1],
		Open:   prices[0],
		High:   prices[1],
		Low:    prices[2],
		Close:  prices[3],
		Volume: volume,
	}, nil
}
