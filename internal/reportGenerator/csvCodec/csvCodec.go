// Package csvCodec reads and writes the ledger's transaction CSV format.
package csvCodec

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/whizrock/ledger/internal/model"
	"github.com/whizrock/ledger/internal/model/dbModel"
)

const DateLayout = "2006-01-02"

var ErrHeaderMismatch = errors.New("unexpected csv header")

var Header = []string{
	"Stock Symbol",
	"Company Name",
	"ISIN Code",
	"Owner",
	"Action",
	"Quantity",
	"Transaction Price",
	"Brokerage",
	"Stamp Duty",
	"Transaction Charges",
	"Broker",
	"Exchange",
	"Transaction Date",
}

const sample = "Stock Symbol,Company Name,ISIN Code,Owner,Action,Quantity,Transaction Price,Brokerage,Stamp Duty,Transaction Charges,Broker,Exchange,Transaction Date\n" +
	"AAPL,Apple Inc.,US0378331005,Family,Buy,10,150.00,5.00,1.00,0.50,Fidelity,NASDAQ,2023-01-15\n" +
	"GOOGL,Alphabet Inc.,US02079K3059,Family,Buy,5,100.00,4.50,0.90,0.50,Fidelity,NASDAQ,2023-02-20\n"

// Sample returns a small valid import file.
func Sample() []byte {
	return []byte(sample)
}

// Read parses an import file into raw rows. Values are not sanitized here:
// malformed numbers and dates come back as NULLs.
func Read(r io.Reader) ([]dbModel.Transaction, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrHeaderMismatch)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err = checkHeader(header); err != nil {
		return nil, err
	}

	var rows []dbModel.Transaction
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if blank(record) {
			continue
		}
		if len(record) < len(Header) {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", line, len(Header), len(record))
		}

		rows = append(rows, dbModel.Transaction{
			StockSymbol:        text(record[0]),
			CompanyName:        text(record[1]),
			ISINCode:           text(record[2]),
			Owner:              text(record[3]),
			Action:             text(record[4]),
			Quantity:           number(record[5]),
			TransactionPrice:   number(record[6]),
			Brokerage:          number(record[7]),
			StampDuty:          number(record[8]),
			TransactionCharges: number(record[9]),
			Broker:             text(record[10]),
			Exchange:           text(record[11]),
			TransactionDate:    date(record[12]),
		})
	}

	return rows, nil
}

// Write renders txs in the import format, so an export can be re-imported as is.
func Write(w io.Writer, txs []model.Transaction) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header); err != nil {
		return err
	}

	for _, tx := range txs {
		var txDate string
		if !tx.TransactionDate.IsZero() {
			txDate = tx.TransactionDate.Format(DateLayout)
		}

		record := []string{
			tx.StockID,
			tx.CompanyName,
			tx.ISINCode,
			tx.Owner,
			string(tx.Action),
			formatFloat(tx.Quantity),
			formatFloat(tx.TransactionPrice),
			formatFloat(tx.Brokerage),
			formatFloat(tx.StampDuty),
			formatFloat(tx.TransactionCharges),
			tx.Broker,
			tx.Exchange,
			txDate,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// Bytes is Write into memory.
func Bytes(txs []model.Transaction) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, txs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func checkHeader(header []string) error {
	if len(header) < len(Header) {
		return fmt.Errorf("%w: got %q", ErrHeaderMismatch, strings.Join(header, ","))
	}

	for i, want := range Header {
		got := strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
		if got != want {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrHeaderMismatch, i+1, got, want)
		}
	}

	return nil
}

func blank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func text(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func number(s string) decimal.NullDecimal {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func date(s string) sql.NullTime {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
