// pkg/model/contract_test.go
package model

import (
	"strings"
	"testing"
	"time"
)

func validContract() *SchemaContract {
	return &SchemaContract{
		Dataset: "county_population",
		Fields: []FieldSpec{
			{Name: "state_code", Type: FieldIdentifier, NaturalKey: true, InHash: true},
			{Name: "population", Type: FieldNumeric, InHash: true},
		},
		Duplicates: DuplicateQuarantine,
	}
}

func TestSchemaContractValidate(t *testing.T) {
	if err := validContract().Validate(); err != nil {
		t.Fatalf("valid contract rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*SchemaContract)
	}{
		{"no dataset", func(c *SchemaContract) { c.Dataset = "" }},
		{"no fields", func(c *SchemaContract) { c.Fields = nil }},
		{"duplicate field names", func(c *SchemaContract) {
			c.Fields = append(c.Fields, FieldSpec{Name: "STATE_CODE"})
		}},
		{"no natural key", func(c *SchemaContract) {
			for i := range c.Fields {
				c.Fields[i].NaturalKey = false
			}
		}},
		{"no hash fields", func(c *SchemaContract) {
			for i := range c.Fields {
				c.Fields[i].InHash = false
			}
		}},
		{"no duplicate policy", func(c *SchemaContract) { c.Duplicates = "" }},
		{"unknown duplicate policy", func(c *SchemaContract) { c.Duplicates = "ignore" }},
		{"negative precision", func(c *SchemaContract) { c.Fields[1].Precision = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validContract()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("invalid contract accepted")
			}
		})
	}
}

func TestSchemaContractFieldLookup(t *testing.T) {
	c := validContract()
	if f := c.Field("STATE_CODE"); f == nil || f.Name != "state_code" {
		t.Error("case-insensitive field lookup failed")
	}
	if f := c.Field("missing"); f != nil {
		t.Error("lookup for absent field succeeded")
	}
}

func TestRunMetadataValidateListsEveryMissingField(t *testing.T) {
	err := RunMetadata{}.Validate()
	if err == nil {
		t.Fatal("empty metadata accepted")
	}
	if !IsStructural(err) {
		t.Fatalf("expected structural error, got %T", err)
	}
	msg := err.Error()
	for _, want := range []string{"release identifier", "schema identifier", "source vintage date", "source checksum", "source URI"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error does not name missing %q: %s", want, msg)
		}
	}

	complete := RunMetadata{
		ReleaseID:      "2025",
		SchemaID:       "county_population",
		VintageDate:    time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		SourceChecksum: "abc",
		SourceURI:      "file:///x",
	}
	if err := complete.Validate(); err != nil {
		t.Errorf("complete metadata rejected: %v", err)
	}
}
