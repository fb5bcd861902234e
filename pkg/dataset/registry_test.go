package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func setupRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()

	d1 := filepath.Join(dir, "electrical")
	os.MkdirAll(d1, 0o755)
	os.WriteFile(filepath.Join(d1, "manifest.yaml"), []byte(`id: electrical
version: "1.0"
source: test
data_file: data.csv
format:
  delimiter: ";"
  has_header: true
  text_column: "text"
`), 0o644)
	os.WriteFile(filepath.Join(d1, "data.csv"), []byte("text\n1.2mm RR Electrical Case\n10 A Single Pole MCB Switch Gear\n"), 0o644)

	d2 := filepath.Join(dir, "codes")
	os.MkdirAll(d2, 0o755)
	os.WriteFile(filepath.Join(d2, "manifest.yaml"), []byte(`id: codes
version: "1.0"
source: test
`), 0o644)
	os.WriteFile(filepath.Join(d2, "data.csv"), []byte("DM0000011\nDM0000012\n"), 0o644)

	// Not a dataset: no manifest.
	os.MkdirAll(filepath.Join(dir, "_download"), 0o755)

	reg := NewRegistry(dir, nil)
	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return reg, dir
}

func TestRegistryLoad(t *testing.T) {
	reg, _ := setupRegistry(t)

	// electrical + codes + builtin materials
	if reg.DatasetCount() != 3 {
		t.Errorf("DatasetCount = %d, want 3", reg.DatasetCount())
	}
	if want := 4 + len(builtinRecords); reg.TotalRecords() != want {
		t.Errorf("TotalRecords = %d, want %d", reg.TotalRecords(), want)
	}
}

func TestRegistry_MissingDirServesBuiltin(t *testing.T) {
	reg := NewRegistry(filepath.Join(t.TempDir(), "nope"), nil)
	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reg.DatasetCount() != 1 {
		t.Errorf("DatasetCount = %d, want 1", reg.DatasetCount())
	}
	if _, err := reg.Get(BuiltinID); err != nil {
		t.Errorf("Get(%s): %v", BuiltinID, err)
	}
}

func TestRegistry_BadDatasetFailsLoad(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad")
	os.MkdirAll(bad, 0o755)
	os.WriteFile(filepath.Join(bad, "manifest.yaml"), []byte("version: 1\n"), 0o644)

	reg := NewRegistry(dir, nil)
	if err := reg.Load(context.Background()); err == nil {
		t.Fatal("expected error for manifest without id")
	}
	// The built-in dataset is still served.
	if reg.DatasetCount() != 1 {
		t.Errorf("DatasetCount = %d, want 1", reg.DatasetCount())
	}
}

func TestSearch_Match(t *testing.T) {
	reg, _ := setupRegistry(t)

	res, err := reg.Search("electrical", "Electrical RR")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Normalized != "electrical rr" {
		t.Errorf("Normalized = %q, want %q", res.Normalized, "electrical rr")
	}
	if res.Total != 2 {
		t.Errorf("Total = %d, want 2", res.Total)
	}
	if len(res.Records) != 1 || res.Records[0].Text != "1.2mm RR Electrical Case" {
		t.Errorf("Records = %+v", res.Records)
	}
}

func TestSearch_CodeExact(t *testing.T) {
	reg, _ := setupRegistry(t)

	res, err := reg.Search("codes", "DM0000011")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Records) != 1 || res.Records[0].Text != "DM0000011" {
		t.Errorf("Records = %+v, want only DM0000011", res.Records)
	}
}

func TestSearch_UnknownDataset(t *testing.T) {
	reg, _ := setupRegistry(t)

	_, err := reg.Search("nope", "glass")
	if !errors.Is(err, ErrDatasetNotFound) {
		t.Errorf("err = %v, want ErrDatasetNotFound", err)
	}
}

func TestListDatasets_Sorted(t *testing.T) {
	reg, _ := setupRegistry(t)

	infos := reg.ListDatasets()
	if len(infos) != 3 {
		t.Fatalf("infos = %d, want 3", len(infos))
	}
	want := []string{"codes", "electrical", "materials"}
	for i, id := range want {
		if infos[i].ID != id {
			t.Errorf("infos[%d].ID = %q, want %q", i, infos[i].ID, id)
		}
	}
	if infos[0].Records != 2 {
		t.Errorf("codes records = %d, want 2", infos[0].Records)
	}
	if infos[0].Normalize != "spoken" {
		t.Errorf("codes normalize = %q, want spoken", infos[0].Normalize)
	}
}

func TestReload(t *testing.T) {
	reg, dir := setupRegistry(t)

	d3 := filepath.Join(dir, "extra")
	os.MkdirAll(d3, 0o755)
	os.WriteFile(filepath.Join(d3, "manifest.yaml"), []byte("id: extra\n"), 0o644)
	os.WriteFile(filepath.Join(d3, "data.csv"), []byte("steel bar\n"), 0o644)

	if err := reg.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if reg.DatasetCount() != 4 {
		t.Errorf("DatasetCount after reload = %d, want 4", reg.DatasetCount())
	}
}
