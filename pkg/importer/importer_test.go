package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/voxsearch/pkg/dataset"
)

func TestCSVAdapter(t *testing.T) {
	a, err := Get("csv")
	if err != nil {
		t.Fatalf("Get(csv): %v", err)
	}

	src := Source{Delimiter: ";", HasHeader: true, TextColumn: "Description"}
	records, err := a.Parse(strings.NewReader("code;description;unit\nG10;10 mm tempered glass;m2\nC53;Cement OPC 53 Grade;\n"), src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Text != "10 mm tempered glass" {
		t.Errorf("Text = %q", records[0].Text)
	}
	if records[0].Metadata["code"] != "G10" || records[0].Metadata["unit"] != "m2" {
		t.Errorf("Metadata = %v", records[0].Metadata)
	}
	if _, ok := records[1].Metadata["unit"]; ok {
		t.Error("empty metadata values should be dropped")
	}

	if _, err := a.Parse(strings.NewReader("a;b\n1;2\n"), src); err == nil {
		t.Error("expected error for missing text column")
	}
}

func TestCSVAdapter_NoHeader(t *testing.T) {
	a, _ := Get("csv")
	records, err := a.Parse(strings.NewReader("DM0000011,x\nDM0000012,y\n"), Source{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 2 || records[1].Text != "DM0000012" {
		t.Errorf("records = %+v", records)
	}
}

func TestLinesAdapter(t *testing.T) {
	a, err := Get("lines")
	if err != nil {
		t.Fatalf("Get(lines): %v", err)
	}
	records, err := a.Parse(strings.NewReader("# materials\n6 mm Clear Float Glass\n\n20 mm PVC Conduit Pipe\n"), Source{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// Blank lines are returned; Run drops them.
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
}

func TestAll_Sorted(t *testing.T) {
	all := All()
	if len(all) < 2 || all[0].ID() != "csv" || all[1].ID() != "lines" {
		t.Errorf("All = %v", all)
	}
	if _, err := Get("xlsx"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRun_LocalCSV(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "materials.csv")
	os.WriteFile(srcPath, []byte("code;description\nG10;10 mm tempered glass\nX;  \nC53;Cement OPC 53 Grade\n"), 0o644)

	out := filepath.Join(dir, "datasets")
	im := New(out, quietLogger())
	res, err := im.Run(context.Background(), Source{
		DatasetID:   "site-materials",
		Format:      "csv",
		Description: "Site materials",
		SourceURL:   srcPath,
		License:     "CC0",
		Delimiter:   ";",
		HasHeader:   true,
		TextColumn:  "description",
		Normalize:   "spoken",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Records != 2 {
		t.Errorf("Records = %d, want 2", res.Records)
	}

	d, err := dataset.LoadDataset(res.Dir)
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if d.Manifest.ID != "site-materials" || d.Manifest.DataFile != "data.gob" {
		t.Errorf("manifest = %+v", d.Manifest)
	}
	if len(d.Records) != 2 || d.Records[1].Index != 1 || d.Records[1].Metadata["code"] != "C53" {
		t.Errorf("records = %+v", d.Records)
	}
	if got := d.Search("opc cement"); len(got) != 1 {
		t.Errorf("Search = %+v", got)
	}

	// The download area is cleaned up and not mistaken for a dataset.
	if _, err := os.Stat(filepath.Join(out, "_download", "site-materials")); !os.IsNotExist(err) {
		t.Errorf("download dir left behind: %v", err)
	}
}

func TestRun_RemoteZipLines(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "list.zip")
	writeZip(t, zipPath, map[string]string{"list.txt": "# codes\nDM0000011\nDM0000012\n"})
	data, _ := os.ReadFile(zipPath)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer ts.Close()

	im := New(filepath.Join(dir, "datasets"), quietLogger())
	res, err := im.Run(context.Background(), Source{DatasetID: "codes", Format: "lines", SourceURL: ts.URL + "/list.zip"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Records != 2 {
		t.Errorf("Records = %d, want 2", res.Records)
	}
}

func TestRun_Errors(t *testing.T) {
	im := New(t.TempDir(), quietLogger())

	if _, err := im.Run(context.Background(), Source{DatasetID: "x", Format: "xlsx", SourceURL: "a"}); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := im.Run(context.Background(), Source{Format: "lines", SourceURL: "a"}); err == nil {
		t.Error("expected error without dataset id")
	}
	if _, err := im.Run(context.Background(), Source{DatasetID: "x", Format: "lines", SourceURL: "/nonexistent/file"}); err == nil {
		t.Error("expected error for missing source file")
	}
}
