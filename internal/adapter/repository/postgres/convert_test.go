package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func TestNumericRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "1", "1000.50", "8884.88", "0.01", "100000000000"} {
		d := decimal.RequireFromString(s)
		if got := numericToDecimal(decimalToNumeric(d)); !got.Equal(d) {
			t.Errorf("round trip of %s gave %s", s, got)
		}
	}
}

func TestOptionalConversions(t *testing.T) {
	if optionalDecimal(nil).Valid {
		t.Errorf("expected NULL numeric for nil decimal")
	}
	if numericToOptionalDecimal(pgtype.Numeric{}) != nil {
		t.Errorf("expected nil decimal for NULL numeric")
	}
	if optionalTimestamptz(nil).Valid || timestamptzToOptional(pgtype.Timestamptz{}) != nil {
		t.Errorf("expected NULL timestamps to stay nil")
	}
	if optionalDate(nil).Valid || dateToOptional(pgtype.Date{}) != nil {
		t.Errorf("expected NULL dates to stay nil")
	}
}

func TestTimeToPgDateDropsClock(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	d := timeToPgDate(time.Date(2024, 3, 31, 23, 45, 0, 0, ist))

	want := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	if !d.Valid || !d.Time.Equal(want) {
		t.Errorf("expected %v, got %v", want, d.Time)
	}
}
