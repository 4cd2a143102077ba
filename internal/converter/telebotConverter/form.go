package telebotConverter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/whizrock/ledger/internal/model"
)

const formSeparator = ";"

var ErrForm = errors.New("malformed transaction form")

var formFields = []string{
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

// FormTemplate explains the one-line transaction form.
func FormTemplate() string {
	return "Send the transaction as one line, fields separated by \"" + formSeparator + "\":\n\n" +
		strings.Join(formFields, formSeparator) + "\n\n" +
		"Example:\nAAPL;Apple Inc.;US0378331005;Family;Buy;10;150;5;1;0.5;Fidelity;NASDAQ;2023-01-15\n\n" +
		"Charges may be left empty. Dates are YYYY-MM-DD."
}

// ParseTransactionForm reads a form line. It checks the shape only; field
// rules are enforced when the transaction is saved.
func ParseTransactionForm(text string) (model.TransactionInput, error) {
	fields := strings.Split(strings.TrimSpace(text), formSeparator)
	if len(fields) != len(formFields) {
		return model.TransactionInput{}, fmt.Errorf("%w: expected %d fields, got %d", ErrForm, len(formFields), len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	var problems []string
	number := func(i int, optional bool) float64 {
		if fields[i] == "" && optional {
			return 0
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(fields[i], ",", ""), 64)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s %q is not a number", formFields[i], fields[i]))
		}
		return v
	}

	input := model.TransactionInput{
		StockID:            fields[0],
		CompanyName:        fields[1],
		ISINCode:           fields[2],
		Owner:              fields[3],
		Action:             ParseAction(fields[4]),
		Quantity:           number(5, false),
		TransactionPrice:   number(6, false),
		Brokerage:          number(7, true),
		StampDuty:          number(8, true),
		TransactionCharges: number(9, true),
		Broker:             fields[10],
		Exchange:           fields[11],
	}

	if fields[12] != "" {
		date, err := time.Parse(dateLayout, fields[12])
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s %q is not YYYY-MM-DD", formFields[12], fields[12]))
		}
		input.TransactionDate = date
	}

	if len(problems) > 0 {
		return model.TransactionInput{}, fmt.Errorf("%w: %s", ErrForm, strings.Join(problems, "; "))
	}

	return input, nil
}

// ParseAction accepts buy and sell in any case. Anything else is returned as
// typed so validation can reject it.
func ParseAction(s string) model.Action {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return model.Buy
	case "sell":
		return model.Sell
	default:
		return model.Action(s)
	}
}

// FormatTransactionForm renders tx as a form line, ready to be edited and sent back.
func FormatTransactionForm(tx model.Transaction) string {
	num := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

	return strings.Join([]string{
		tx.StockID,
		tx.CompanyName,
		tx.ISINCode,
		tx.Owner,
		string(tx.Action),
		num(tx.Quantity),
		num(tx.TransactionPrice),
		num(tx.Brokerage),
		num(tx.StampDuty),
		num(tx.TransactionCharges),
		tx.Broker,
		tx.Exchange,
		tx.TransactionDate.Format(dateLayout),
	}, formSeparator)
}
