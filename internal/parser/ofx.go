package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/model"
)

var (
	severityPattern = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening tags at end of line with no closing bracket.
	unclosedTagPattern = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// OFXParser reads OFX and QFX statements. Credits become deposits and debits
// become withdrawals.
type OFXParser struct{}

// NewOFXParser creates a new OFX parser.
func NewOFXParser() *OFXParser {
	return &OFXParser{}
}

// Format implements Parser.
func (p *OFXParser) Format() string { return "ofx" }

// Parse implements Parser.
func (p *OFXParser) Parse(ctx context.Context, r io.Reader) ([]model.Transaction, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var transactions []model.Transaction
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		bankStmts++
		txns, err := convertList(stmt.BankTranList.Transactions, string(stmt.BankAcctFrom.BranchID))
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", stmt.BankAcctFrom.AcctID, err)
		}
		transactions = append(transactions, txns...)
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		ccStmts++
		txns, err := convertList(stmt.BankTranList.Transactions, "")
		if err != nil {
			return nil, fmt.Errorf("card %s: %w", stmt.CCAcctFrom.AcctID, err)
		}
		transactions = append(transactions, txns...)
	}

	slog.Debug("Parsed OFX file",
		"total_transactions", len(transactions),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return transactions, nil
}

// preprocessOFX fixes formatting issues some banks ship in their exports.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityPattern.ReplaceAllStringFunc(content, strings.ToUpper)
	return unclosedTagPattern.ReplaceAllString(content, "$1>")
}

func convertList(list []ofxgo.Transaction, branch string) ([]model.Transaction, error) {
	transactions := make([]model.Transaction, 0, len(list))
	for _, ofxTx := range list {
		txn, err := convertTransaction(ofxTx, branch)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", ofxTx.FiTID, err)
		}
		transactions = append(transactions, txn)
	}
	return transactions, nil
}

func convertTransaction(ofxTx ofxgo.Transaction, branch string) (model.Transaction, error) {
	amount, err := decimal.NewFromString(ofxTx.TrnAmt.FloatString(2))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("invalid amount: %w", err)
	}

	txn := model.Transaction{
		Date:        ofxTx.DtPosted.Time,
		Description: describe(ofxTx),
		Branch:      branch,
	}
	if amount.IsNegative() {
		txn.WithdrawalAmount = amount.Neg()
	} else {
		txn.DepositAmount = amount
	}

	return txn, Validate(txn)
}

// describe picks the most useful text of an OFX transaction: the payee name,
// then NAME, or MEMO when NAME says nothing about the counterparty.
func describe(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := strings.TrimSpace(string(tx.Name))
	if tx.Memo != "" && (name == "" || isGenericDescription(name)) {
		name = strings.TrimSpace(string(tx.Memo))
	}
	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}
