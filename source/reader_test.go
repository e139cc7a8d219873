package source

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbook/domain"
	"matchbook/logger"
)

func TestParseRecord(t *testing.T) {
	o, err := ParseRecord([]string{"42", "100", "10.005", "Buy"})
	require.NoError(t, err)
	assert.Equal(t, domain.Order{ID: 42, Side: domain.SideBuy, Price: 1001, Quantity: 100}, *o)

	o, err = ParseRecord([]string{" 7", " 5 ", "19.99", " Sell"})
	require.NoError(t, err)
	assert.Equal(t, domain.Order{ID: 7, Side: domain.SideSell, Price: 1999, Quantity: 5}, *o)
}

func TestParseRecordMalformed(t *testing.T) {
	cases := map[string][]string{
		"too few fields":  {"1", "10", "1.00"},
		"too many fields": {"1", "10", "1.00", "Buy", "extra"},
		"bad id":          {"x", "10", "1.00", "Buy"},
		"negative qty":    {"1", "-10", "1.00", "Buy"},
		"bad price":       {"1", "10", "abc", "Buy"},
		"negative price":  {"1", "10", "-1", "Buy"},
		"unknown side":    {"1", "10", "1.00", "buy"},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRecord(fields)
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}

	_, err := ParseRecord([]string{"1", "10", "abc", "Buy"})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
}

func TestReaderSkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		"# orderId,quantity,price,side",
		"1,10,1.00,Sell",
		"",
		"2,10,1.00",
		"3,5,0.99,Buy",
		"4,5,oops,Buy",
		`5,5,"1.0"0,Sell`,
		"6,7,1.01,Sell",
	}, "\n")

	var logs bytes.Buffer
	r := NewReader(strings.NewReader(input), slog.New(slog.NewTextHandler(&logs, nil)))

	orders, err := r.ReadAll()
	require.NoError(t, err)

	ids := make([]domain.OrderID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []domain.OrderID{1, 3, 6}, ids)
	assert.Equal(t, 3, r.Skipped())
	assert.Contains(t, logs.String(), "line=4")
	assert.Contains(t, logs.String(), "line=6")

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReaderEmptyInput(t *testing.T) {
	r := NewReader(strings.NewReader(""), nil)
	_, err := r.Next()
	assert.Equal(t, io.EOF, err)
	assert.Zero(t, r.Skipped())
}

func TestReaderStrayQuoteOnlySkipsItsLine(t *testing.T) {
	input := "1,10,1.00,Sell\n2,5,\"1.01,Sell\n3,7,1.02,Sell\n4,8,1.03,Buy\n"

	var logs bytes.Buffer
	r := NewReader(strings.NewReader(input), slog.New(slog.NewTextHandler(&logs, nil)))

	orders, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, domain.OrderID(1), orders[0].ID)
	assert.Equal(t, domain.OrderID(3), orders[1].ID)
	assert.Equal(t, domain.OrderID(4), orders[2].ID)
	assert.Equal(t, 1, r.Skipped())
	assert.Contains(t, logs.String(), "line=2")
}

func TestReaderLineTooLong(t *testing.T) {
	input := "1,10,1.00,Sell\n" + strings.Repeat("x", maxLineSize+1) + "\n"
	r := NewReader(strings.NewReader(input), logger.Discard())

	orders, err := r.ReadAll()
	assert.Error(t, err)
	assert.Len(t, orders, 1)
}
