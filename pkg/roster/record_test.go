package roster

import (
	"encoding/json"
	"testing"
)

func TestRecord_IsEmpty(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		empty  bool
	}{
		{"no status no notes", Record{ID: "1"}, true},
		{"name alone does not count", Record{ID: "1", Name: strPtr("A")}, true},
		{"friend status", Record{ID: "1", Status: StatusFriend}, false},
		{"blocked status", Record{ID: "1", Status: StatusBlocked}, false},
		{"empty-string note is a note", Record{ID: "1", Notes: strPtr("")}, false},
		{"note alone", Record{ID: "1", Notes: strPtr("x")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.IsEmpty(); got != tt.empty {
				t.Errorf("IsEmpty() = %v, expected %v", got, tt.empty)
			}
		})
	}
}

func TestStatus_JSON(t *testing.T) {
	t.Run("none encodes as null", func(t *testing.T) {
		data, err := json.Marshal(Record{ID: "1"})
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		expected := `{"id":"1","name":null,"status":null,"notes":null}`
		if string(data) != expected {
			t.Errorf("Marshal = %s, expected %s", data, expected)
		}
	})

	t.Run("null decodes as none", func(t *testing.T) {
		var rec Record
		if err := json.Unmarshal([]byte(`{"id":"1","status":null}`), &rec); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if rec.Status != StatusNone {
			t.Errorf("Expected StatusNone, got %q", rec.Status)
		}
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		var rec Record
		if err := json.Unmarshal([]byte(`{"id":"1","status":"nemesis"}`), &rec); err == nil {
			t.Error("Expected error for unknown status")
		}
	})
}

func TestRecord_DisplayName(t *testing.T) {
	if got := (Record{ID: "42"}).DisplayName(); got != "42" {
		t.Errorf("Expected id fallback, got %q", got)
	}
	if got := (Record{ID: "42", Name: strPtr("Alice")}).DisplayName(); got != "Alice" {
		t.Errorf("Expected Alice, got %q", got)
	}
}
