package correlation

import (
	"testing"

	"github.com/tattva/tattva/internal/pkg/errors"
)

func TestFinding_IsEmpty(t *testing.T) {
	if !(Finding{}).IsEmpty() {
		t.Error("zero Finding should be empty")
	}
	if NewFinding(0, "salinity_psu", 1).IsEmpty() {
		t.Error("a computed zero correlation is still a finding")
	}
}

func TestFinding_Validate(t *testing.T) {
	name := "salinity_psu"
	id := int64(2)

	tests := []struct {
		name    string
		f       Finding
		wantErr bool
	}{
		{"empty", Finding{}, false},
		{"populated", NewFinding(-0.4, name, id), false},
		{"covariate only", Finding{Covariate: &name}, true},
		{"species only", Finding{Correlation: 0.2, GroupID: &id}, true},
		{"empty with correlation", Finding{Correlation: 0.3}, true},
		{"out of range", NewFinding(1.5, name, id), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.f.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.IsValidation(err) {
				t.Errorf("Validate() error = %v, want validation error", err)
			}
		})
	}
}

func TestEncodeFinding(t *testing.T) {
	tests := []struct {
		name string
		f    Finding
		want string
	}{
		{"populated", NewFinding(0.5, "sea_surface_temp_c", 7), `{"correlation":0.5,"variable":"sea_surface_temp_c","species_id":7}`},
		{"empty", Finding{}, `{"correlation":0,"variable":null,"species_id":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeFinding(tt.f)
			if err != nil {
				t.Fatalf("encodeFinding() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("encodeFinding() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDecodeFinding(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"populated", `{"correlation":-0.25,"variable":"salinity_psu","species_id":3}`, false},
		{"empty", `{"correlation":0,"variable":null,"species_id":null}`, false},
		{"half populated", `{"correlation":0.25,"variable":"salinity_psu","species_id":null}`, true},
		{"garbage", `not json`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeFinding([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Errorf("decodeFinding() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFinding_String(t *testing.T) {
	if got := (Finding{}).String(); got != "no finding" {
		t.Errorf("String() = %q", got)
	}
	if got := NewFinding(0.12345, "salinity_psu", 4).String(); got != "species 4 ~ salinity_psu (r=0.1235)" {
		t.Errorf("String() = %q", got)
	}
}
