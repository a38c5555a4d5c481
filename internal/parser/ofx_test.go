package parser

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>KRW
<BANKACCTFROM>
<BANKID>088
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-4500.00
<FITID>2024011501
<NAME>STARBUCKS GANGNAM
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>3200000.00
<FITID>2024012501
<NAME>CREDIT
<MEMO>ACME PAYROLL
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestOFXParser_Parse(t *testing.T) {
	p := NewOFXParser()

	txns, err := p.Parse(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, txns, 2)

	debit := txns[0]
	assert.Equal(t, "STARBUCKS GANGNAM", debit.Description)
	assert.True(t, debit.WithdrawalAmount.Equal(decimal.NewFromInt(4500)))
	assert.True(t, debit.DepositAmount.IsZero())
	assert.Equal(t, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), debit.Date.UTC())

	credit := txns[1]
	assert.Equal(t, "ACME PAYROLL", credit.Description, "generic NAME falls back to MEMO")
	assert.True(t, credit.DepositAmount.Equal(decimal.NewFromInt(3200000)))
	assert.True(t, credit.WithdrawalAmount.IsZero())
}

func TestOFXParser_InvalidContent(t *testing.T) {
	_, err := NewOFXParser().Parse(context.Background(), strings.NewReader("not an ofx file"))
	assert.Error(t, err)
}

func TestPreprocessOFX(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "leading whitespace",
			input:    "\n\n  OFXHEADER:100",
			expected: "OFXHEADER:100",
		},
		{
			name:     "mixed case severity",
			input:    "<SEVERITY>Info</SEVERITY>",
			expected: "<SEVERITY>INFO</SEVERITY>",
		},
		{
			name:     "unclosed tag",
			input:    "<STMTTRN>\n<BANKTRANLIST",
			expected: "<STMTTRN>\n<BANKTRANLIST>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, preprocessOFX(tt.input))
		})
	}
}
