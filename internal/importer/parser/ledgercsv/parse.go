// Package ledgercsv parses cost log CSV exports.
//
// The exports come from a Swedish accounting system and have been observed
// with comma and semicolon delimiters, with and without a UTF-8 BOM, and
// occasionally in ISO-8859-1. Column headers are matched against known
// aliases since some export paths mangle the non-ASCII header names.
package ledgercsv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/costledger/backend/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

// RowError describes one row that could not be parsed. The row is excluded
// from the batch, it never aborts the whole upload.
type RowError struct {
	Line   int    `json:"line"`   // 1-based physical line the row starts on, the header starts on line 1
	Record string `json:"record"` // The raw row content
	Err    string `json:"error"`  // Why the row was skipped
}

func (e RowError) String() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err)
}

var (
	ErrEmptyFile     = errors.New("the uploaded file is empty")
	ErrNoVernrColumn = errors.New("no Vernr column found in the CSV header")
)

// The source format uses ISO dates.
const dateLayout = "2006-01-02"

// headerAliases maps each field to the header names it has been observed
// under. The first alias is the canonical name, the others are produced by
// export paths that mangle the Swedish characters.
var headerAliases = map[string][]string{
	"vernr":             {"Vernr"},
	"account_number":    {"Konto"},
	"posting_date":      {"Bokföringsdatum", "Bokfringsdatum", "Bokforingsdatum"},
	"registration_date": {"Registreringsdatum"},
	"account_name":      {"Benämning", "Benmning", "Benamning"},
	"ks":                {"Ks"},
	"project_number":    {"Projnr"},
	"verification_text": {"Verifikationstext"},
	"transaction_info":  {"Transaktionsinfo"},
	"debit":             {"Debet"},
	"credit":            {"Kredit"},
}

// Parse decodes a cost log CSV export into cost records.
//
// Parsing is a pure transform: nothing is persisted. Unparsable rows are
// skipped and reported as RowErrors; only an unreadable file or a header
// without a Vernr column is a fatal error.
func Parse(f io.Reader) ([]models.Cost, []RowError, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, fmt.Errorf("could not read the uploaded file: %w", err)
	}

	data = decode(data)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, ErrEmptyFile
	}

	delimiter := sniffDelimiter(data)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter

	// Rows with a wrong field count are reported per row, not fatally
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("could not read the CSV header: %w", err)
	}

	columns := mapHeader(header)
	if _, ok := columns["vernr"]; !ok {
		return nil, nil, fmt.Errorf("%w: %v", ErrNoVernrColumn, header)
	}

	var costs []models.Cost
	var rowErrors []RowError

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			// The reader wraps row-level problems in a ParseError that
			// carries the physical line
			var line int
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				line = parseErr.Line
			}

			rowErrors = append(rowErrors, RowError{Line: line, Err: fmt.Sprintf("could not read line in CSV: %v", err)})
			continue
		}

		// Quoted fields can contain newlines, so records and physical
		// lines do not map 1:1. The reader knows where the record started.
		line, _ := reader.FieldPos(0)

		cost, err := parseRow(record, columns)
		if err != nil {
			rowErrors = append(rowErrors, RowError{
				Line:   line,
				Record: strings.Join(record, string(delimiter)),
				Err:    err.Error(),
			})
			continue
		}

		costs = append(costs, cost)
	}

	return costs, rowErrors, nil
}

// parseRow converts one CSV record into a cost record.
func parseRow(record []string, columns map[string]int) (models.Cost, error) {
	vernr := strings.TrimSpace(field(record, columns, "vernr"))
	if vernr == "" {
		return models.Cost{}, errors.New("the Vernr field is empty")
	}

	postingDate, err := parseDate(field(record, columns, "posting_date"))
	if err != nil {
		return models.Cost{}, fmt.Errorf("could not parse posting date: %w", err)
	}

	// Some exports leave the registration date empty, fall back to the
	// posting date instead of inventing one.
	registrationDate := postingDate
	if raw := strings.TrimSpace(field(record, columns, "registration_date")); raw != "" {
		registrationDate, err = parseDate(raw)
		if err != nil {
			return models.Cost{}, fmt.Errorf("could not parse registration date: %w", err)
		}
	}

	accountNumber, err := strconv.Atoi(strings.TrimSpace(field(record, columns, "account_number")))
	if err != nil {
		return models.Cost{}, fmt.Errorf("could not parse account number: %w", err)
	}

	// Account numbers are expected to follow the 4-digit BAS convention.
	// Anything else still imports, but only 4xxx-9xxx is ever refined.
	if accountNumber < 1000 || accountNumber > 9999 {
		log.Warn().Str("vernr", vernr).Int("accountNumber", accountNumber).Msg("account number outside the 4-digit convention")
	}

	debit, err := parseAmount(field(record, columns, "debit"))
	if err != nil {
		return models.Cost{}, fmt.Errorf("could not parse debit amount: %w", err)
	}

	credit, err := parseAmount(field(record, columns, "credit"))
	if err != nil {
		return models.Cost{}, fmt.Errorf("could not parse credit amount: %w", err)
	}

	return models.Cost{
		Vernr:            vernr,
		AccountNumber:    accountNumber,
		PostingDate:      postingDate,
		RegistrationDate: registrationDate,
		AccountName:      field(record, columns, "account_name"),
		Ks:               field(record, columns, "ks"),
		ProjectNumber:    field(record, columns, "project_number"),
		VerificationText: field(record, columns, "verification_text"),
		TransactionInfo:  field(record, columns, "transaction_info"),
		Debit:            debit,
		Credit:           credit,
	}, nil
}

// decode strips a UTF-8 BOM and falls back to ISO-8859-1 for files that are
// not valid UTF-8.
func decode(data []byte) []byte {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	if utf8.Valid(data) {
		return data
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		// ISO-8859-1 decodes any byte sequence, this cannot happen
		return data
	}

	return decoded
}

// sniffDelimiter decides between comma and semicolon by counting occurrences
// in the header line.
func sniffDelimiter(data []byte) rune {
	header := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		header = data[:i]
	}

	if bytes.Count(header, []byte(";")) > bytes.Count(header, []byte(",")) {
		return ';'
	}

	return ','
}

// mapHeader maps every known field to its column index in the header.
func mapHeader(header []string) map[string]int {
	index := make(map[string]int, len(headerAliases))

	for i, name := range header {
		name = strings.TrimSpace(name)
		for field, aliases := range headerAliases {
			for _, alias := range aliases {
				if strings.EqualFold(name, alias) {
					index[field] = i
				}
			}
		}
	}

	return index
}

// field returns the value of the named field, or an empty string when the
// column is missing or the row is too short. Optional fields therefore
// default to empty without a row error.
func field(record []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(record) {
		return ""
	}

	return record[i]
}

func parseDate(value string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(value))
}

// parseAmount parses a locale-formatted decimal amount. The exports use a
// comma as the decimal separator and spaces or non-breaking spaces as
// thousands separators. An empty value is zero.
func parseAmount(value string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer(
		`"`, "",
		" ", "",
		" ", "",
		",", ".",
	).Replace(value)

	if cleaned == "" {
		return decimal.Zero, nil
	}

	return decimal.NewFromString(cleaned)
}
