package tripay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func sign(key string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyCallbackSignature(t *testing.T) {
	key := "priv-key-123"
	body := []byte(`{"merchant_ref":"abc","amount":150000,"status":"PAID"}`)
	good := sign(key, body)

	if !VerifyCallbackSignature(key, body, good) {
		t.Fatal("valid signature rejected")
	}
	if !VerifyCallbackSignature(key, body, "  "+strings.ToUpper(good)+" ") {
		t.Error("header casing and whitespace should not matter")
	}

	mutated := []byte(`{"merchant_ref":"abc","amount":150001,"status":"PAID"}`)
	if VerifyCallbackSignature(key, mutated, good) {
		t.Error("mutated body accepted")
	}
	if VerifyCallbackSignature("other-key", body, good) {
		t.Error("wrong key accepted")
	}
	if VerifyCallbackSignature(key, body, "") {
		t.Error("empty signature accepted")
	}
}

func TestLegacySignatureRoundTrip(t *testing.T) {
	sig := BuildSignature("pk", "T1234", "order-1", 250000)
	if len(sig) != 64 {
		t.Fatalf("signature length = %d, want 64 hex chars", len(sig))
	}
	if !VerifyLegacySignature("pk", "T1234", "order-1", 250000, sig) {
		t.Error("round trip failed")
	}
	if VerifyLegacySignature("pk", "T1234", "order-1", 250001, sig) {
		t.Error("amount change accepted")
	}
	if VerifyLegacySignature("pk", "T1234", "order-2", 250000, sig) {
		t.Error("ref change accepted")
	}
}

func TestMapStatus(t *testing.T) {
	cases := []struct {
		raw            string
		completeOnPaid bool
		want           string
		isPaid         bool
		wantErr        bool
	}{
		{"PAID", false, "PROCESSING", true, false},
		{"PAID", true, "COMPLETED", true, false},
		{"SUCCESS", false, "PROCESSING", true, false},
		{"COMPLETED", false, "PROCESSING", true, false},
		{"paid", false, "PROCESSING", true, false},
		{" UNPAID ", false, "PENDING", false, false},
		{"PENDING", false, "PENDING", false, false},
		{"EXPIRED", false, "CANCELLED", false, false},
		{"FAILED", false, "CANCELLED", false, false},
		{"CANCELLED", false, "CANCELLED", false, false},
		{"REFUND", false, "", false, true},
		{"", false, "", false, true},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			target, isPaid, err := MapStatus(tc.raw, tc.completeOnPaid)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("MapStatus(%q) expected error, got %q", tc.raw, target)
				}
				return
			}
			if err != nil {
				t.Fatalf("MapStatus(%q): %v", tc.raw, err)
			}
			if string(target) != tc.want {
				t.Errorf("target = %q, want %q", target, tc.want)
			}
			if isPaid != tc.isPaid {
				t.Errorf("isPaid = %v, want %v", isPaid, tc.isPaid)
			}
		})
	}
}

func TestClearsCart(t *testing.T) {
	for _, raw := range []string{"PAID", "SUCCESS", "COMPLETED", "EXPIRED", "paid"} {
		if !ClearsCart(raw) {
			t.Errorf("ClearsCart(%q) = false", raw)
		}
	}
	for _, raw := range []string{"PENDING", "UNPAID", "FAILED", "CANCELLED", "REFUND"} {
		if ClearsCart(raw) {
			t.Errorf("ClearsCart(%q) = true", raw)
		}
	}
}
