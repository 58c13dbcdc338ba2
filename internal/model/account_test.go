package model

import "testing"

func TestCreateAccountRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		request CreateAccountRequest
		wantErr error
	}{
		{
			name:    "valid main account",
			request: CreateAccountRequest{AccountType: AccountKindMain, Currency: CurrencyEUR},
			wantErr: nil,
		},
		{
			name:    "valid bonus account",
			request: CreateAccountRequest{AccountType: AccountKindBonus, Currency: CurrencyUSD},
			wantErr: nil,
		},
		{
			name:    "valid jackpot account",
			request: CreateAccountRequest{AccountType: AccountKindJackpot, Currency: CurrencyGBP},
			wantErr: nil,
		},
		{
			name:    "system account rejected",
			request: CreateAccountRequest{AccountType: AccountKindSystem, Currency: CurrencyNOK},
			wantErr: ErrSystemAccountKind,
		},
		{
			name:    "invalid account type",
			request: CreateAccountRequest{AccountType: "invalid", Currency: CurrencyNOK},
			wantErr: ErrInvalidAccountKind,
		},
		{
			name:    "empty account type",
			request: CreateAccountRequest{AccountType: "", Currency: CurrencyNOK},
			wantErr: ErrInvalidAccountKind,
		},
		{
			name:    "unsupported currency",
			request: CreateAccountRequest{AccountType: AccountKindMain, Currency: "JPY"},
			wantErr: ErrInvalidCurrency,
		},
		{
			name:    "empty currency",
			request: CreateAccountRequest{AccountType: AccountKindMain, Currency: ""},
			wantErr: ErrInvalidCurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if err != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAccountKind_MayDebit(t *testing.T) {
	tests := []struct {
		kind AccountKind
		want DebitPolicy
	}{
		{AccountKindMain, DebitAllowed},
		{AccountKindJackpot, DebitAllowed},
		{AccountKindSystem, DebitUnbounded},
		{AccountKindBonus, DebitDenied},
		{AccountKindPending, DebitDenied},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.MayDebit(); got != tt.want {
				t.Errorf("MayDebit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCurrency_IsValid(t *testing.T) {
	for _, c := range SupportedCurrencies {
		if !c.IsValid() {
			t.Errorf("%v should be valid", c)
		}
	}
	if Currency("JPY").IsValid() {
		t.Error("JPY should not be a supported currency")
	}
}
