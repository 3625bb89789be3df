package services

import "testing"

func TestIsStrongPassword(t *testing.T) {
	tests := []struct {
		password string
		want     bool
	}{
		{"Str0ng!Pass", true},
		{"Aa1!Aa1!", true},
		{"Ünï1c0de§", true},
		{"Aa1!Aa1", false},
		{"alllower1!", false},
		{"ALLUPPER1!", false},
		{"NoDigits!!", false},
		{"NoSymbol11", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsStrongPassword(tt.password); got != tt.want {
			t.Errorf("IsStrongPassword(%q) = %v, want %v", tt.password, got, tt.want)
		}
	}
}

func TestPasswordHashing(t *testing.T) {
	salt, err := newSalt()
	if err != nil {
		t.Fatalf("newSalt: %v", err)
	}
	other, _ := newSalt()
	if salt == other {
		t.Fatal("salts repeat")
	}

	hash := hashPassword(salt, testPassword)
	if !checkPassword(salt, testPassword, hash) {
		t.Error("correct password rejected")
	}
	if checkPassword(salt, "Str0ng!Pasz", hash) {
		t.Error("wrong password accepted")
	}
	if checkPassword(other, testPassword, hash) {
		t.Error("hash verified under a different salt")
	}
	if hashPassword(other, testPassword) == hash {
		t.Error("same hash under different salts")
	}
}
