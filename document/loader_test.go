package document

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoader_Text(t *testing.T) {
	p := writeFile(t, "notes.md", []byte("# Notes\n\nRetrieval  augmented\tgeneration."))
	doc, err := NewLoader().Load(context.Background(), p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Format != FormatText || doc.Source != p {
		t.Fatalf("unexpected document %+v", doc)
	}
	if !strings.Contains(doc.Text, "augmented\tgeneration") {
		t.Fatalf("text not preserved: %q", doc.Text)
	}
	if doc.ID != NewID("# Notes Retrieval augmented generation.") {
		t.Fatalf("id should derive from normalized text, got %s", doc.ID)
	}
}

func TestLoader_Missing(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"))
	if !errors.Is(err, ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
	if _, err := NewLoader().Load(context.Background(), " "); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument for blank uri, got %v", err)
	}
}

func TestLoader_WhitespaceOnly(t *testing.T) {
	p := writeFile(t, "blank.txt", []byte(" \n\t \n"))
	_, err := NewLoader().Load(context.Background(), p)
	if !errors.Is(err, ErrNoExtractableText) {
		t.Fatalf("expected ErrNoExtractableText, got %v", err)
	}
}

func TestLoader_CorruptPDF(t *testing.T) {
	p := writeFile(t, "broken.pdf", []byte("not a pdf at all"))
	_, err := NewLoader().Load(context.Background(), p)
	if !errors.Is(err, ErrUnreadableSource) {
		t.Fatalf("expected ErrUnreadableSource, got %v", err)
	}
}

func TestLoader_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &[]interface{}{"city", "population"}); err != nil {
		t.Fatalf("set header: %v", err)
	}
	if err := f.SetSheetRow(sheet, "A2", &[]interface{}{"Lyon", 522000}); err != nil {
		t.Fatalf("set row: %v", err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	p := writeFile(t, "cities.xlsx", buf.Bytes())
	doc, err := NewLoader().Load(context.Background(), p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, want := range []string{"Sheet: " + sheet, "Header: city\tpopulation", "Row 2: Lyon\t522000"} {
		if !strings.Contains(doc.Text, want) {
			t.Fatalf("missing %q in %q", want, doc.Text)
		}
	}
}

func TestLoader_DOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	xml := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>First paragraph</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Second</w:t><w:tab/><w:t>tabbed</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	if _, err := w.Write([]byte(xml)); err != nil {
		t.Fatalf("write document.xml: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	p := writeFile(t, "memo.docx", buf.Bytes())
	doc, err := NewLoader().Load(context.Background(), p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Text != "First paragraph\nSecond\ttabbed\n" {
		t.Fatalf("unexpected text %q", doc.Text)
	}
}

func TestFormatOf(t *testing.T) {
	cases := map[string]Format{
		"a.PDF":                   FormatPDF,
		"s3://bucket/x.xlsx?v=1":  FormatXLSX,
		"gs://bucket/legacy.xls":  FormatXLS,
		"file:///tmp/letter.docx": FormatDOCX,
		"readme.md":               FormatText,
		"mem://localhost/noext":   FormatText,
	}
	for uri, want := range cases {
		if got := FormatOf(uri); got != want {
			t.Errorf("FormatOf(%q) = %s, want %s", uri, got, want)
		}
	}
}

func TestNewID(t *testing.T) {
	if NewID("a  b\n") != NewID("a b") {
		t.Fatalf("ids differ for equivalent text")
	}
	if NewID("a b") == NewID("a c") {
		t.Fatalf("ids collide for different text")
	}
	d := New("inline", "hello")
	if d.Meta()["source"] != "inline" || d.Meta()["format"] != "text" {
		t.Fatalf("unexpected meta %v", d.Meta())
	}
}
