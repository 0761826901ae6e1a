package docx

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"
)

func documentXML(t *testing.T, data []byte) string {
	t.Helper()
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("archive is not a valid zip: %v", err)
	}

	names := make(map[string]bool)
	var document string
	for _, f := range reader.File {
		names[f.Name] = true
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				t.Fatalf("open document part: %v", err)
			}
			raw, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				t.Fatalf("read document part: %v", err)
			}
			document = string(raw)
		}
	}

	for _, want := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"} {
		if !names[want] {
			t.Fatalf("archive is missing part %s, has %v", want, names)
		}
	}
	if len(reader.File) != 3 {
		t.Fatalf("archive must contain exactly three parts, got %d", len(reader.File))
	}
	return document
}

func TestBuildPlainParagraphs(t *testing.T) {
	doc := documentXML(t, mustBuild(t, NewBuilder(), "Первая строка\n\nВторая строка\n"))

	if got := strings.Count(doc, "<w:p/>"); got != 1 {
		t.Fatalf("expected one empty paragraph, got %d", got)
	}
	if !strings.Contains(doc, ">Первая строка<") || !strings.Contains(doc, ">Вторая строка<") {
		t.Fatalf("paragraph text missing: %s", doc)
	}
	if strings.Contains(doc, "<w:tbl>") {
		t.Fatal("plain text must not produce tables")
	}
}

func TestBuildMarkdownTable(t *testing.T) {
	text := strings.Join([]string{
		"Сводка по ответам:",
		"| Вопрос | Среднее |",
		"|--------|---------|",
		"| Нагрузка | 7 |",
		"| Интерес | 4 |",
		"",
		"Выводы ниже.",
	}, "\n")

	doc := documentXML(t, mustBuild(t, NewBuilder(), text))

	if got := strings.Count(doc, "<w:tbl>"); got != 1 {
		t.Fatalf("expected one table, got %d", got)
	}
	// Разделитель шапки не является строкой таблицы
	if got := strings.Count(doc, "<w:tr>"); got != 3 {
		t.Fatalf("expected 3 rows, got %d", got)
	}
	if got := strings.Count(doc, "<w:tc>"); got != 6 {
		t.Fatalf("expected 6 cells, got %d", got)
	}
	if strings.Contains(doc, "---") {
		t.Fatal("separator row leaked into the document")
	}
	if !strings.Contains(doc, ">Нагрузка<") || !strings.Contains(doc, ">Выводы ниже.<") {
		t.Fatalf("content missing: %s", doc)
	}
}

func TestBuildRaggedTableIsPadded(t *testing.T) {
	text := strings.Join([]string{
		"| А | Б | В |",
		"|---|---|---|",
		"| 1 |",
	}, "\n")

	doc := documentXML(t, mustBuild(t, NewBuilder(), text))

	// Обе строки дотягиваются до трёх колонок
	if got := strings.Count(doc, "<w:tc>"); got != 6 {
		t.Fatalf("expected 6 cells after padding, got %d", got)
	}
	if got := strings.Count(doc, `<w:gridCol w:w="2400"/>`); got != 3 {
		t.Fatalf("expected 3 grid columns at default width, got %d", got)
	}
}

func TestBuildCustomCellWidth(t *testing.T) {
	b := &Builder{CellWidth: 1200}
	doc := documentXML(t, mustBuild(t, b, "| x |\n|---|\n| y |"))

	if !strings.Contains(doc, `<w:gridCol w:w="1200"/>`) {
		t.Fatalf("custom cell width not applied: %s", doc)
	}
}

func TestBuildEscapesXML(t *testing.T) {
	doc := documentXML(t, mustBuild(t, NewBuilder(), "a < b & c > d"))

	if !strings.Contains(doc, "a &lt; b &amp; c &gt; d") {
		t.Fatalf("special characters not escaped: %s", doc)
	}
}

func TestBuildPipeWithoutSeparatorIsParagraph(t *testing.T) {
	doc := documentXML(t, mustBuild(t, NewBuilder(), "вопрос | ответ\nобычная строка"))

	if strings.Contains(doc, "<w:tbl>") {
		t.Fatal("a pipe without a separator line must stay a paragraph")
	}
	if !strings.Contains(doc, ">вопрос | ответ<") {
		t.Fatalf("paragraph text missing: %s", doc)
	}
}

func mustBuild(t *testing.T, b *Builder, text string) []byte {
	t.Helper()
	data, err := b.Build(text)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return data
}
