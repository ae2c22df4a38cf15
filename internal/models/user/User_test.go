package user

import "testing"

func TestSetAndCheckPassword(t *testing.T) {
	u := &User{Username: "admin"}

	if err := u.SetPassword("hunter2"); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}
	if u.EncryptedPassword == "hunter2" {
		t.Fatal("password should not be stored in the clear")
	}

	if err := u.CheckPassword("hunter2"); err != nil {
		t.Errorf("expected the correct password to verify: %v", err)
	}
	if err := u.CheckPassword("wrong"); err == nil {
		t.Error("expected the wrong password to fail verification")
	}
}
