package common

import "testing"

func TestMakeRandHexString(t *testing.T) {
	a, err := MakeRandHexString(16)
	if err != nil {
		t.Fatalf("MakeRandHexString error: %v", err)
	}
	if len(a) != 32 {
		t.Errorf("len = %d, want 32", len(a))
	}

	b, err := MakeRandHexString(16)
	if err != nil {
		t.Fatalf("MakeRandHexString error: %v", err)
	}
	if a == b {
		t.Error("two tokens should not collide")
	}
}

func TestWipeByteArray(t *testing.T) {
	b := []byte{1, 2, 3}
	WipeByteArray(b)
	for i, v := range b {
		if v != 0 {
			t.Errorf("byte %d not wiped: %d", i, v)
		}
	}
	WipeByteArray(nil)
}
