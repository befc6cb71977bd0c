package model

import (
	"testing"
	"time"
)

func TestUserPasswordHashing(t *testing.T) {
	u := &User{Email: "pharmacist@example.com"}
	if err := u.SetPassword("s3cret-pass"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if u.Password == "s3cret-pass" {
		t.Fatal("password stored in plain text")
	}
	if !u.CheckPassword("s3cret-pass") {
		t.Error("correct password rejected")
	}
	if u.CheckPassword("wrong-pass") {
		t.Error("wrong password accepted")
	}
}

func TestUserPrivileges(t *testing.T) {
	u := &User{
		Privileges: []Privilege{
			{Code: "sale:create"},
			{Code: "medicine:view"},
		},
	}
	if !u.HasPrivilege("sale:create") {
		t.Error("HasPrivilege(sale:create) = false, want true")
	}
	if u.HasPrivilege("user:delete") {
		t.Error("HasPrivilege(user:delete) = true, want false")
	}

	codes := u.GetPrivilegeCodes()
	if len(codes) != 2 || codes[0] != "sale:create" || codes[1] != "medicine:view" {
		t.Errorf("GetPrivilegeCodes() = %v", codes)
	}
}

func TestBatchIsExpired(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	expired := MedicineBatch{ExpiryDate: now.AddDate(0, 0, -1)}
	fresh := MedicineBatch{ExpiryDate: now.AddDate(0, 1, 0)}

	if !expired.IsExpired(now) {
		t.Error("batch past its expiry date reported as not expired")
	}
	if fresh.IsExpired(now) {
		t.Error("batch with a future expiry date reported as expired")
	}
}
