package routemanager

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

// rowReader interface defines methods used to read rows from a csv file and record them to a database
type rowReader interface {

	// addRow should read the current line from csvFileParser and hold the resulting record until flush
	addRow(parser *csvFileParser) error

	// flush should record any pending records with tx, if any
	flush(ctx context.Context, tx *sqlx.Tx) error
}

// csvFileParser holds information about a csv file. Methods to read columns for records. Errors while extracting
// data types are stored in errors array which record the line number the error happened.
type csvFileParser struct {
	Filename       string
	line           int
	csvReader      *csv.Reader
	headers        []string
	currentRecords []string
	errors         []error
}

// makeCSVFileParser creates new csvFileParser from io.Reader
func makeCSVFileParser(r io.Reader, filename string) (*csvFileParser, error) {
	csvReader := csv.NewReader(r)
	csvReader.TrimLeadingSpace = true

	headers, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("unable to load header in %s file: %v", filename, err)
	}
	removeBOMIfPresent(headers)
	for i, header := range headers {
		headers[i] = strings.TrimSpace(header)
	}
	return &csvFileParser{
		Filename:       filename,
		line:           1,
		csvReader:      csvReader,
		headers:        headers,
		currentRecords: headers,
	}, nil
}

func removeBOMIfPresent(headers []string) {
	if len(headers) < 1 || len(headers[0]) < 1 {
		return
	}
	runes := []rune(headers[0])
	if runes[0] == '\uFEFF' {
		headers[0] = string(runes[1:])
	}
}

// hasColumn reports whether the file has a header called name
func (C *csvFileParser) hasColumn(name string) bool {
	return indexOf(name, C.headers) >= 0
}

// getString retrieves string
// returns empty string if missing
func (C *csvFileParser) getString(name string, optional bool) string {
	result := C.getStringPointer(name, optional)
	if result == nil {
		return ""
	}
	return *result
}

// getStringPointer retrieves string pointer
// returns nil if missing or, when optional, empty
func (C *csvFileParser) getStringPointer(name string, optional bool) *string {
	result, err := findValue(name, C.currentRecords, C.headers, optional)
	if err != nil {
		C.errors = append(C.errors, err)
	}
	if result != nil && len(*result) == 0 && optional {
		return nil
	}
	return result
}

// getFloat64 retrieves float64
// returns 0 if missing.
func (C *csvFileParser) getFloat64(name string, optional bool) float64 {
	result, err := getFloat64(name, C.currentRecords, C.headers, optional)
	if err != nil {
		C.errors = append(C.errors, err)
	}
	if result == nil {
		return 0
	}
	return *result
}

// getInt retrieves int
// returns 0 if missing.
func (C *csvFileParser) getInt(name string, optional bool) int {
	result, err := getInt(name, C.currentRecords, C.headers, optional)
	if err != nil {
		C.errors = append(C.errors, err)
	}
	if result == nil {
		return 0
	}
	return *result
}

// getError retrieve errors encountered on the current line
func (C *csvFileParser) getError() error {
	if len(C.errors) > 0 {
		return fmt.Errorf("in file %v, line %v: %v", C.Filename, C.line, C.errors)
	}
	return nil
}

// addParseError appends error to list of parsing errors encountered in csv file
func (C *csvFileParser) addParseError(err error) {
	C.errors = append(C.errors, err)
}

// nextLine moves csvReader one line forward
func (C *csvFileParser) nextLine() error {
	var err error
	C.currentRecords, err = C.csvReader.Read()
	C.line += 1
	return err
}

// find index of elements that matches name string. returns -1 if not found
func indexOf(name string, elements []string) int {
	for i, value := range elements {
		if name == value {
			return i
		}
	}
	return -1
}

// findValue retrieves string value from csv records
// returns nil if record isn't present and optional is true
func findValue(name string, records []string, headers []string, optional bool) (*string, error) {
	index := indexOf(name, headers)
	if index < 0 {
		if optional {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to find header: %s", name)
	}
	if len(records) <= index {
		return nil, fmt.Errorf("records are too short to find header at %v named %s", index, name)
	}
	value := strings.TrimSpace(records[index])
	if len(value) == 0 && !optional {
		return nil, fmt.Errorf("missing required value in column %v", name)
	}
	return &value, nil
}

// getInt retrieves int from csv records
// returns nil if record isn't present and optional is true
func getInt(name string, records []string, headers []string, optional bool) (*int, error) {
	value, err := findValue(name, records, headers, optional)
	if err != nil || value == nil || len(*value) == 0 {
		return nil, err
	}
	result, err := strconv.Atoi(*value)
	if err != nil {
		return nil, csvError(name, err)
	}
	return &result, nil
}

// getFloat64 retrieves float64 from csv records
// returns nil if record isn't present and optional is true
func getFloat64(name string, records []string, headers []string, optional bool) (*float64, error) {
	value, err := findValue(name, records, headers, optional)
	if err != nil || value == nil || len(*value) == 0 {
		return nil, err
	}
	result, err := strconv.ParseFloat(*value, 64)
	if err != nil {
		return nil, csvError(name, err)
	}
	return &result, nil
}

// csvError convenience method for formatting an error in a csv column
func csvError(name string, err error) error {
	return fmt.Errorf("unable to parse column %s, error: %v ", name, err)
}

// loadRows iterates over all rows in csvFileParser and feeds them into reader, then flushes the reader with tx.
// reading halts if an error occurs and the error is returned
func loadRows(ctx context.Context, tx *sqlx.Tx, parser *csvFileParser, reader rowReader) error {
	for {
		err := parser.nextLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		err = reader.addRow(parser)
		if err != nil {
			parser.addParseError(err)
			return parser.getError()
		}
	}
	return reader.flush(ctx, tx)
}
