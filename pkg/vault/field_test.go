package vault

import "testing"

func TestIsReservedField(t *testing.T) {
	for _, key := range []string{FieldTitle, FieldUserName, FieldPassword, FieldURL, FieldNotes, FieldOTP} {
		if !IsReservedField(key) {
			t.Errorf("IsReservedField(%q) = false, want true", key)
		}
	}
	for _, key := range []string{"", "title", "PASSWORD", "API Token", "Custom"} {
		if IsReservedField(key) {
			t.Errorf("IsReservedField(%q) = true, want false", key)
		}
	}
}

func TestPlainValue(t *testing.T) {
	v := PlainValue("visible")
	if v.Protected() {
		t.Error("plain value should not be protected")
	}
	got, err := v.Reveal()
	if err != nil || got != "visible" {
		t.Errorf("Reveal = %q, %v", got, err)
	}
}

func TestProtectedValue(t *testing.T) {
	v, err := ProtectedValue("secret")
	if err != nil {
		t.Fatalf("ProtectedValue: %v", err)
	}
	if !v.Protected() {
		t.Error("protected value should report protected")
	}
	got, err := v.Reveal()
	if err != nil || got != "secret" {
		t.Errorf("Reveal = %q, %v", got, err)
	}

	v.destroy()
	if _, err := v.Reveal(); err == nil {
		t.Error("Reveal after destroy should fail")
	}
}

func TestEntrySetCustomFieldReserved(t *testing.T) {
	e := &Entry{}
	if err := e.SetCustomField(FieldPassword, "x", true); err == nil {
		t.Error("reserved key should be rejected")
	}
	if err := e.SetCustomField("Fine", "x", false); err != nil {
		t.Errorf("SetCustomField = %v", err)
	}
}
