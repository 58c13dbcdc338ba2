package model

import "testing"

func TestParseAmount_RoundsToScale(t *testing.T) {
	a, err := ParseAmount("12.345678")
	if err != nil {
		t.Fatalf("ParseAmount() error = %v", err)
	}
	if a.String() != "12.3457" {
		t.Errorf("String() = %v, want 12.3457", a.String())
	}
}

func TestParseAmount_RejectsGarbage(t *testing.T) {
	if _, err := ParseAmount("not-a-number"); err != ErrInvalidAmount {
		t.Errorf("ParseAmount() error = %v, want ErrInvalidAmount", err)
	}
}

func TestAmount_JSONRoundTrip(t *testing.T) {
	a, _ := ParseAmount("1999.99")
	data, err := a.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if string(data) != "1999.9900" {
		t.Errorf("MarshalJSON() = %s, want 1999.9900", data)
	}

	var back Amount
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON() error = %v", err)
	}
	if !back.Equal(a) {
		t.Errorf("round-tripped amount = %v, want %v", back, a)
	}
}
