package gateway

import "testing"

func TestBuildConfirmationBase(t *testing.T) {
	base := BuildConfirmationBase("ord_123", "pay_456")
	if base != "ord_123:pay_456" {
		t.Fatalf("unexpected base string: %s", base)
	}
}

func TestSign_HMACSHA256(t *testing.T) {
	// echo -n "abc" | openssl dgst -sha256 -hmac "key"
	sig := Sign("abc", "key")
	if sig != "9c196e32dc0175f86f4b1cb89289d6619de6bee699e4c378e68309ed97a1a6ab" {
		t.Fatalf("unexpected signature: %s", sig)
	}
}

func TestVerifySignature_CaseInsensitive(t *testing.T) {
	if !VerifySignature("aBcD12", "ABcd12") {
		t.Fatal("expected case-insensitive constant-time comparison")
	}
	if VerifySignature("aBcD12", "aBcD13") {
		t.Fatal("expected mismatch to be rejected")
	}
}

func TestVerifyConfirmation(t *testing.T) {
	secret := "topup-secret"
	sig := Sign(BuildConfirmationBase("ord_1", "pay_1"), secret)

	if !VerifyConfirmation("ord_1", "pay_1", sig, secret) {
		t.Fatal("expected valid confirmation to verify")
	}
	if VerifyConfirmation("ord_2", "pay_1", sig, secret) {
		t.Fatal("signature must be bound to the order reference")
	}
	if VerifyConfirmation("ord_1", "pay_2", sig, secret) {
		t.Fatal("signature must be bound to the payment reference")
	}
	if VerifyConfirmation("ord_1", "pay_1", sig, "other-secret") {
		t.Fatal("signature must not verify under a different secret")
	}
	if VerifyConfirmation("ord_1", "pay_1", "", secret) {
		t.Fatal("empty signature must be rejected")
	}
	if VerifyConfirmation("ord_1", "pay_1", sig, "") {
		t.Fatal("empty secret must reject all signatures")
	}
}
