package roster

import "testing"

func TestDefault_LoadsEmbeddedRoster(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	if r.Len() != 4 {
		t.Fatalf("expected 4 persons, got %d", r.Len())
	}

	first := r.At(0)
	if first.FullName != "Juan Carlos Mendoza Ríos" {
		t.Errorf("unexpected first person %q", first.FullName)
	}
	if first.CaseFile != "3245-2022-0" {
		t.Errorf("unexpected case file %q", first.CaseFile)
	}
}

func TestByName(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}

	tests := []struct {
		name   string
		input  string
		wantID int
		found  bool
	}{
		{"exact", "Juan Carlos Mendoza Ríos", 1, true},
		{"no accents", "juan carlos mendoza rios", 1, true},
		{"dashes", "maria-elena-gutierrez-sanchez", 2, true},
		{"upper case", "ROSA MARÍA CAMPOS DÍAZ", 4, true},
		{"unknown label", "unknown", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := r.ByName(tt.input)
			if ok != tt.found {
				t.Fatalf("ByName(%q) found = %v, want %v", tt.input, ok, tt.found)
			}
			if ok && p.ID != tt.wantID {
				t.Errorf("ByName(%q) id = %d, want %d", tt.input, p.ID, tt.wantID)
			}
		})
	}
}

func TestByID(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}

	p, ok := r.ByID(3)
	if !ok {
		t.Fatal("expected person 3")
	}
	if p.FullName != "Pedro Alberto Flores Torres" {
		t.Errorf("unexpected name %q", p.FullName)
	}

	if _, ok := r.ByID(99); ok {
		t.Error("expected no person with id 99")
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}

	all := r.All()
	all[0].FullName = "changed"

	if r.At(0).FullName == "changed" {
		t.Error("All() must not expose internal storage")
	}
}

func TestParse_DuplicateID(t *testing.T) {
	data := []byte(`
persons:
  - id: 1
    full_name: A
  - id: 1
    full_name: B
`)
	if _, err := Parse(data); err == nil {
		t.Error("expected error for duplicate id")
	}
}
