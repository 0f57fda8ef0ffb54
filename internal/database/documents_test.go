package database

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"

	"pizzas-pos/internal/database/migrations"
	"pizzas-pos/internal/docstore"
)

func TestMigrationFiles_Embedded(t *testing.T) {
	files, err := migrationFiles(migrations.FS)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(files, "0001_documents.sql") {
		t.Fatalf("files = %v", files)
	}
	if !slices.IsSorted(files) {
		t.Errorf("files not sorted: %v", files)
	}

	sql, err := migrations.FS.ReadFile("0001_documents.sql")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(sql), "pg_notify('"+NotifyChannel+"'") {
		t.Error("documents trigger does not notify on the store channel")
	}
}

func TestDecodeData(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]any
		wantErr bool
	}{
		{
			name: "numbers stay exact",
			raw:  `{"totalAmount": 20.50, "quantity": 2}`,
			want: map[string]any{"totalAmount": json.Number("20.50"), "quantity": json.Number("2")},
		},
		{
			name: "null becomes empty",
			raw:  `null`,
			want: map[string]any{},
		},
		{
			name:    "invalid json",
			raw:     `{"a":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeData([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeData() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("decodeData() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %v (%T), want %v", k, got[k], got[k], v)
				}
			}
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID("orders", "6F9619FF-8B86-D011-B42D-00C04FC964FF")
	if err != nil {
		t.Fatal(err)
	}
	if id != "6f9619ff-8b86-d011-b42d-00c04fc964ff" {
		t.Errorf("parseID() = %s", id)
	}

	if _, err := parseID("orders", "A1"); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("parseID(invalid) error = %v, want ErrNotFound", err)
	}
}
