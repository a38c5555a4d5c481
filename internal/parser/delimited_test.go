package parser

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/common"
)

func TestDelimitedParser_KoreanHeaders(t *testing.T) {
	input := "\ufeff거래일시,적요,출금액,입금액,거래후잔액,거래점\n" +
		"2024.01.15 09:30:00,스타벅스 강남점,\"4,500\",0,\"1,995,500\",강남\n" +
		"2024.01.25 10:00:00,급여 ACME,0,\"3,200,000\",\"5,195,500\",본점\n"

	txns, err := NewDelimitedParser(',').Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, "스타벅스 강남점", txns[0].Description)
	assert.True(t, txns[0].WithdrawalAmount.Equal(decimal.NewFromInt(4500)))
	assert.True(t, txns[0].DepositAmount.IsZero())
	assert.True(t, txns[0].Balance.Equal(decimal.NewFromInt(1995500)))
	assert.Equal(t, "강남", txns[0].Branch)
	assert.Equal(t, time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC), txns[0].Date)

	assert.True(t, txns[1].DepositAmount.Equal(decimal.NewFromInt(3200000)))
	assert.True(t, txns[1].IsDeposit())
}

func TestDelimitedParser_EnglishTabSeparated(t *testing.T) {
	input := "Date\tDescription\tWithdrawal\tDeposit\n" +
		"2024-02-01\tNetflix subscription\t17000\t\n" +
		"\t\t\t\n" +
		"2024-02-03\tRefund\t\t5000\n"

	p := NewDelimitedParser('\t')
	assert.Equal(t, "tsv", p.Format())

	txns, err := p.Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, txns, 2, "blank rows are skipped")
	assert.True(t, txns[0].IsWithdrawal())
	assert.True(t, txns[1].IsDeposit())
}

func TestDelimitedParser_SignedAmountColumn(t *testing.T) {
	input := "date,description,amount\n2024-03-01,Rent,-850000\n2024-03-02,Interest,120\n"

	txns, err := NewDelimitedParser(',').Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.True(t, txns[0].WithdrawalAmount.Equal(decimal.NewFromInt(850000)))
	assert.True(t, txns[1].DepositAmount.Equal(decimal.NewFromInt(120)))
}

func TestDelimitedParser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{
			name:    "empty file",
			input:   "",
			wantMsg: "empty file",
		},
		{
			name:    "missing description column",
			input:   "date,deposit\n2024-01-01,100\n",
			wantMsg: "missing description column",
		},
		{
			name:    "missing amount columns",
			input:   "date,description\n2024-01-01,coffee\n",
			wantMsg: "missing amount columns",
		},
		{
			name:    "bad date",
			input:   "date,description,deposit\nyesterday,coffee,100\n",
			wantMsg: "line 2",
		},
		{
			name:    "negative deposit",
			input:   "date,description,deposit,withdrawal\n2024-01-01,coffee,-100,\n",
			wantMsg: "negative amount",
		},
		{
			name:    "both amounts set",
			input:   "date,description,deposit,withdrawal\n2024-01-01,coffee,100,200\n",
			wantMsg: "both deposit and withdrawal",
		},
		{
			name:    "invalid amount",
			input:   "date,description,deposit\n2024-01-01,coffee,abc\n",
			wantMsg: "invalid amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDelimitedParser(',').Parse(context.Background(), strings.NewReader(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidTransaction)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestDelimitedParser_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDelimitedParser(',').Parse(ctx, strings.NewReader("date,description,deposit\n2024-01-01,a,1\n"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestForFile(t *testing.T) {
	tests := []struct {
		path       string
		wantFormat string
		wantErr    bool
	}{
		{path: "export.csv", wantFormat: "csv"},
		{path: "export.TSV", wantFormat: "tsv"},
		{path: "export.txt", wantFormat: "tsv"},
		{path: "statement.ofx", wantFormat: "ofx"},
		{path: "statement.qfx", wantFormat: "ofx"},
		{path: "export.xlsx", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			p, err := ForFile(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFormat, p.Format())
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,description,withdrawal\n2024-01-01,coffee,4500\n"), 0o600))

	txns, err := ParseFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "coffee", txns[0].Description)

	_, err = ParseFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
