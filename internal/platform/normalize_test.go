package platform

import "testing"

func TestCollectionShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"bare array", `[{"id":1},{"id":2}]`, 2},
		{"items wrapper", `{"total":2,"items":[{"id":1},{"id":2}]}`, 2},
		{"rows wrapper", `{"rows":[{"id":1}]}`, 1},
		{"empty array", `[]`, 0},
		{"empty items", `{"items":[]}`, 0},
		{"null", `null`, 0},
		{"empty input", ``, 0},
		{"malformed", `{"items": 17}`, 0},
		{"scalar", `42`, 0},
		{"unrelated object", `{"foo":"bar"}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Collection([]byte(tt.raw))
			if len(got) != tt.want {
				t.Errorf("Collection(%s) = %d records, want %d", tt.raw, len(got), tt.want)
			}
		})
	}
}

func TestDecodeCollectionSkipsBadRecords(t *testing.T) {
	type rec struct {
		ID int `json:"id"`
	}
	raw := `{"items":[{"id":1},"not an object",{"id":3}]}`
	got := decodeCollection[rec]([]byte(raw))
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("decodeCollection = %+v", got)
	}
}

func TestQueueHelpers(t *testing.T) {
	q := Queue{ID: 4, Name: "support"}
	if q.NumericID() != 4 {
		t.Errorf("NumericID = %d", q.NumericID())
	}
	q.QueueID = 9
	if q.NumericID() != 9 {
		t.Errorf("NumericID with queue_id = %d", q.NumericID())
	}

	if q.DisplayLabel() != "support" {
		t.Errorf("DisplayLabel = %q", q.DisplayLabel())
	}
	q.Label = "Support"
	if q.DisplayLabel() != "Support" {
		t.Errorf("DisplayLabel = %q", q.DisplayLabel())
	}
	q.DisplayName = "Premium Support"
	if q.DisplayLabel() != "Premium Support" {
		t.Errorf("DisplayLabel = %q", q.DisplayLabel())
	}
	if (Queue{}).DisplayLabel() != "Queue" {
		t.Errorf("empty queue label = %q", Queue{}.DisplayLabel())
	}
}

func TestUserHelpers(t *testing.T) {
	u := User{UUID: "u-1", Firstname: "Ada", Lastname: "Lovelace"}
	if u.Name() != "Ada Lovelace" {
		t.Errorf("Name = %q", u.Name())
	}

	u = User{UUID: "u-2", Email: "bo@example.com"}
	if u.Name() != "bo@example.com" {
		t.Errorf("email fallback = %q", u.Name())
	}

	u = User{UUID: "u-3"}
	if u.Name() != "User u-3" {
		t.Errorf("terminal fallback = %q", u.Name())
	}

	u = User{Lines: []UserLine{
		{},
		{Extensions: []UserExtension{{Exten: "", Context: "default"}, {Exten: "1004", Context: "default"}}},
	}}
	if u.PrimaryExtension() != "1004" {
		t.Errorf("PrimaryExtension = %q", u.PrimaryExtension())
	}
}

func TestAgentHelpers(t *testing.T) {
	a := Agent{ID: 5, Number: "1005"}
	if a.Ext() != "1005" {
		t.Errorf("Ext falls back to number, got %q", a.Ext())
	}
	if a.Name() != "Agent 1005" {
		t.Errorf("Name = %q", a.Name())
	}
	a.Extension = "2005"
	if a.Ext() != "2005" {
		t.Errorf("Ext prefers extension, got %q", a.Ext())
	}
	a.Firstname, a.Lastname = "Bo", "Burnham"
	if a.Name() != "Bo Burnham" {
		t.Errorf("Name = %q", a.Name())
	}
}
