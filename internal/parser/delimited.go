package parser

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

// Column names recognized in the header row, English or Korean.
var headerAliases = map[string]string{
	"date":        colDate,
	"거래일시":        colDate,
	"거래일자":        colDate,
	"거래일":         colDate,
	"description": colDescription,
	"적요":          colDescription,
	"내용":          colDescription,
	"거래내용":        colDescription,
	"deposit":     colDeposit,
	"입금액":         colDeposit,
	"입금":          colDeposit,
	"맡기신금액":       colDeposit,
	"withdrawal":  colWithdrawal,
	"출금액":         colWithdrawal,
	"출금":          colWithdrawal,
	"찾으신금액":       colWithdrawal,
	"amount":      colAmount,
	"금액":          colAmount,
	"balance":     colBalance,
	"잔액":          colBalance,
	"거래후잔액":       colBalance,
	"branch":      colBranch,
	"거래점":         colBranch,
	"취급점":         colBranch,
}

const (
	colDate        = "date"
	colDescription = "description"
	colDeposit     = "deposit"
	colWithdrawal  = "withdrawal"
	colAmount      = "amount"
	colBalance     = "balance"
	colBranch      = "branch"
)

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006.01.02 15:04:05",
	"2006.01.02 15:04",
	"2006.01.02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"20060102",
}

// DelimitedParser reads comma or tab separated bank exports with a header row.
// A signed amount column may replace the deposit and withdrawal columns;
// negative amounts are withdrawals.
type DelimitedParser struct {
	Location *time.Location
	Comma    rune
}

// NewDelimitedParser creates a parser splitting fields on comma.
func NewDelimitedParser(comma rune) *DelimitedParser {
	return &DelimitedParser{Comma: comma, Location: time.UTC}
}

// Format implements Parser.
func (p *DelimitedParser) Format() string {
	if p.Comma == '\t' {
		return "tsv"
	}
	return "csv"
}

// Parse implements Parser. The first invalid row stops parsing.
func (p *DelimitedParser) Parse(ctx context.Context, r io.Reader) ([]model.Transaction, error) {
	reader := csv.NewReader(r)
	reader.Comma = p.Comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", common.ErrInvalidTransaction)
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var transactions []model.Transaction
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}

		txn, err := p.parseRecord(record, columns)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		transactions = append(transactions, txn)
	}

	return transactions, nil
}

func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int)
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		key = strings.ReplaceAll(key, " ", "")
		if col, ok := headerAliases[key]; ok {
			if _, dup := columns[col]; !dup {
				columns[col] = i
			}
		}
	}

	for _, required := range []string{colDate, colDescription} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: missing %s column", common.ErrInvalidTransaction, required)
		}
	}
	_, hasDeposit := columns[colDeposit]
	_, hasWithdrawal := columns[colWithdrawal]
	_, hasAmount := columns[colAmount]
	if !hasAmount && !hasDeposit && !hasWithdrawal {
		return nil, fmt.Errorf("%w: missing amount columns", common.ErrInvalidTransaction)
	}

	return columns, nil
}

func (p *DelimitedParser) parseRecord(record []string, columns map[string]int) (model.Transaction, error) {
	field := func(col string) string {
		i, ok := columns[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	date, err := p.parseDate(field(colDate))
	if err != nil {
		return model.Transaction{}, err
	}

	txn := model.Transaction{
		Date:        date,
		Description: field(colDescription),
		Branch:      field(colBranch),
	}

	if txn.Balance, err = parseAmount(field(colBalance), true); err != nil {
		return model.Transaction{}, fmt.Errorf("balance: %w", err)
	}

	if _, ok := columns[colAmount]; ok && field(colAmount) != "" {
		amount, err := parseAmount(field(colAmount), true)
		if err != nil {
			return model.Transaction{}, fmt.Errorf("amount: %w", err)
		}
		if amount.IsNegative() {
			txn.WithdrawalAmount = amount.Neg()
		} else {
			txn.DepositAmount = amount
		}
	} else {
		if txn.DepositAmount, err = parseAmount(field(colDeposit), false); err != nil {
			return model.Transaction{}, fmt.Errorf("deposit: %w", err)
		}
		if txn.WithdrawalAmount, err = parseAmount(field(colWithdrawal), false); err != nil {
			return model.Transaction{}, fmt.Errorf("withdrawal: %w", err)
		}
	}

	if err := Validate(txn); err != nil {
		return model.Transaction{}, err
	}
	return txn, nil
}

func (p *DelimitedParser) parseDate(raw string) (time.Time, error) {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized date %q", common.ErrInvalidTransaction, raw)
}

// parseAmount reads a number that may carry thousands separators or a currency mark.
// An empty field is zero.
func parseAmount(raw string, allowNegative bool) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer(",", "", " ", "", "원", "", "₩", "").Replace(raw)
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, nil
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid amount %q", common.ErrInvalidTransaction, raw)
	}
	if !allowNegative && amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative amount %q", common.ErrInvalidTransaction, raw)
	}
	return amount, nil
}

// Validate checks the invariants every parsed transaction must hold.
func Validate(txn model.Transaction) error {
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", common.ErrInvalidTransaction)
	}
	if txn.DepositAmount.IsNegative() || txn.WithdrawalAmount.IsNegative() {
		return fmt.Errorf("%w: negative amount", common.ErrInvalidTransaction)
	}
	if !txn.DepositAmount.IsZero() && !txn.WithdrawalAmount.IsZero() {
		return fmt.Errorf("%w: both deposit and withdrawal are set", common.ErrInvalidTransaction)
	}
	return nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
