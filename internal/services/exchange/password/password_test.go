package password

import "testing"

func TestHashAndVerify(t *testing.T) {
	hashed, err := Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hashed == "correct horse battery staple" {
		t.Fatal("expected hash to differ from plaintext")
	}
	if !Verify(hashed, "correct horse battery staple") {
		t.Fatal("expected matching password to verify")
	}
	if Verify(hashed, "wrong password") {
		t.Fatal("expected mismatched password to fail")
	}
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	if _, err := Hash(""); err == nil {
		t.Fatal("expected error for empty password")
	}
}
