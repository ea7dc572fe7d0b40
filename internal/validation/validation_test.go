package validation

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid lowercase", "0x5fbdb2315678afecb367f032d93f642f64180aa3", false},
		{"valid checksum", "0x5FbDB2315678afecb367f032d93F642f64180aa3", false},
		{"valid uppercase", "0x5FBDB2315678AFECB367F032D93F642F64180AA3", false},
		{"upper prefix", "0X5fbdb2315678afecb367f032d93f642f64180aa3", false},
		{"too short", "0x5fbdb2315678afecb367f032d93f642f64180aa", true},
		{"too long", "0x5fbdb2315678afecb367f032d93f642f64180aa3a", true},
		{"no prefix", "005fbdb2315678afecb367f032d93f642f64180aa3", true},
		{"non hex", "0x5fbdb2315678afecb367f032d93f642f64180zz3", true},
		{"empty", "", true},
		{"ens name", "vitalik.eth", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAddress(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestParseAddress(t *testing.T) {
	want := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

	got, err := ParseAddress(" 0x5fbdb2315678afecb367f032d93f642f64180aa3 ")
	if err != nil {
		t.Fatalf("ParseAddress() error = %v", err)
	}
	if got != want {
		t.Errorf("ParseAddress() = %v, want %v", got, want)
	}

	if _, err := ParseAddress("0x123"); err == nil {
		t.Error("ParseAddress(0x123) expected error")
	}
}

func TestValidateOneOf(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"empty allowed", "", false},
		{"member", "pending", false},
		{"not member", "lost", true},
		{"case sensitive", "Pending", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOneOf("status", tt.value, "pending", "confirmed")
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOneOf(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestValidateLimit(t *testing.T) {
	tests := []struct {
		limit   int
		wantErr bool
	}{
		{1, false},
		{500, false},
		{0, true},
		{-1, true},
		{501, true},
	}

	for _, tt := range tests {
		if err := ValidateLimit(tt.limit, 500); (err != nil) != tt.wantErr {
			t.Errorf("ValidateLimit(%d) error = %v, wantErr %v", tt.limit, err, tt.wantErr)
		}
	}
}
