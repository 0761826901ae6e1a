// Package docx собирает минимальный .docx из плоского текста отчёта.
// Архив состоит из трёх частей: манифест типов, манифест связей и тело
// документа. Markdown-таблицы (строка с «|» плюс строка-разделитель из
// «-|: ») превращаются в таблицы документа, остальные строки — в абзацы.
package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
)

const DefaultCellWidth = 2400

type Builder struct {
	// Ширина колонки таблицы в twips
	CellWidth int
}

func NewBuilder() *Builder {
	return &Builder{CellWidth: DefaultCellWidth}
}

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8"?>` +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
		`</Types>`

	relsXML = `<?xml version="1.0" encoding="UTF-8"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
		`</Relationships>`
)

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Build сериализует текст в байты .docx-архива.
func (b *Builder) Build(text string) ([]byte, error) {
	documentXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body>` +
		b.bodyXML(text) +
		`</w:body>` +
		`</w:document>`

	var buf bytes.Buffer
	archive := zip.NewWriter(&buf)

	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/document.xml", documentXML},
	}
	for _, part := range parts {
		w, err := archive.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("create archive part %s: %w", part.name, err)
		}
		if _, err := w.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("write archive part %s: %w", part.name, err)
		}
	}

	if err := archive.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *Builder) bodyXML(text string) string {
	// Хвостовой перевод строки не порождает лишний пустой абзац
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	var blocks []string
	index := 0
	for index < len(lines) {
		line := lines[index]
		next := ""
		if index+1 < len(lines) {
			next = lines[index+1]
		}

		if strings.Contains(line, "|") && isTableSeparator(next) {
			rows := [][]string{splitTableRow(line)}
			index += 2
			for index < len(lines) && strings.Contains(lines[index], "|") {
				rows = append(rows, splitTableRow(lines[index]))
				index++
			}
			blocks = append(blocks, b.tableXML(rows))
			continue
		}

		blocks = append(blocks, paragraphXML(line))
		index++
	}

	return strings.Join(blocks, "")
}

// isTableSeparator распознаёт разделитель шапки markdown-таблицы:
// непустая строка только из символов «-», «|», «:», пробела, с хотя бы
// одним дефисом.
func isTableSeparator(line string) bool {
	stripped := strings.TrimSpace(line)
	if stripped == "" || !strings.Contains(stripped, "-") {
		return false
	}
	for _, r := range stripped {
		if !strings.ContainsRune("|-: ", r) {
			return false
		}
	}
	return true
}

func splitTableRow(line string) []string {
	trimmed := strings.Trim(strings.TrimSpace(line), "|")
	parts := strings.Split(trimmed, "|")
	cells := make([]string, len(parts))
	for i, part := range parts {
		cells[i] = strings.TrimSpace(part)
	}
	return cells
}

func paragraphXML(text string) string {
	if strings.TrimSpace(text) == "" {
		return "<w:p/>"
	}
	return `<w:p><w:r><w:t xml:space="preserve">` + xmlEscaper.Replace(text) + `</w:t></w:r></w:p>`
}

func (b *Builder) tableXML(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	columns := 0
	for _, row := range rows {
		if len(row) > columns {
			columns = len(row)
		}
	}

	width := b.CellWidth
	if width <= 0 {
		width = DefaultCellWidth
	}

	var sb strings.Builder
	sb.WriteString("<w:tbl>")
	sb.WriteString("<w:tblPr><w:tblBorders>" +
		`<w:top w:val="single" w:sz="4" w:color="auto"/>` +
		`<w:left w:val="single" w:sz="4" w:color="auto"/>` +
		`<w:bottom w:val="single" w:sz="4" w:color="auto"/>` +
		`<w:right w:val="single" w:sz="4" w:color="auto"/>` +
		`<w:insideH w:val="single" w:sz="4" w:color="auto"/>` +
		`<w:insideV w:val="single" w:sz="4" w:color="auto"/>` +
		"</w:tblBorders></w:tblPr>")

	sb.WriteString("<w:tblGrid>")
	for i := 0; i < columns; i++ {
		fmt.Fprintf(&sb, `<w:gridCol w:w="%d"/>`, width)
	}
	sb.WriteString("</w:tblGrid>")

	for _, row := range rows {
		sb.WriteString("<w:tr>")
		for i := 0; i < columns; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			sb.WriteString(`<w:tc><w:tcPr/><w:p><w:r><w:t xml:space="preserve">`)
			sb.WriteString(xmlEscaper.Replace(cell))
			sb.WriteString(`</w:t></w:r></w:p></w:tc>`)
		}
		sb.WriteString("</w:tr>")
	}

	sb.WriteString("</w:tbl>")
	return sb.String()
}
