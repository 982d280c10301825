package security

import (
	"testing"
	"time"
)

func TestGenerateOTP_SixDigits(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateOTP()
		if err != nil {
			t.Fatalf("generate otp: %v", err)
		}
		if len(code) != OTPDigits {
			t.Fatalf("expected %d digits, got %q", OTPDigits, code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-numeric code %q", code)
			}
		}
	}
}

func TestOTPMatches(t *testing.T) {
	now := time.Now()
	future := now.Add(10 * time.Minute)
	past := now.Add(-1 * time.Minute)
	code := "482913"

	cases := []struct {
		name      string
		stored    *string
		submitted string
		expires   *time.Time
		want      bool
	}{
		{"exact match", &code, "482913", &future, true},
		{"trailing whitespace", &code, "482913 ", &future, true},
		{"stored padded", strPtr(" 482913"), "482913", &future, true},
		{"wrong code", &code, "000000", &future, false},
		{"expired", &code, "482913", &past, false},
		{"never issued", nil, "482913", &future, false},
		{"missing expiry", &code, "482913", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := OTPMatches(tc.stored, tc.submitted, tc.expires, now); got != tc.want {
				t.Fatalf("OTPMatches = %v, want %v", got, tc.want)
			}
		})
	}
}

func strPtr(s string) *string {
	return &s
}
