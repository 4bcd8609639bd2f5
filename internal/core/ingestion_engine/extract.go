package ingestion_engine

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv"
	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"

	"github.com/davidolu-dev/shoplore/internal/core"
)

// Supported content types.
const (
	MimePDF      = "application/pdf"
	MimeDocx     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeXlsx     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeText     = "text/plain"
	MimeCSV      = "text/csv"
	MimeMarkdown = "text/markdown"
)

type extractFunc func(data []byte) (string, error)

// extractors dispatches by declared content type. Unknown keys fail with
// UnsupportedFormatError before any bytes are parsed.
var extractors = map[string]extractFunc{
	MimePDF:      extractPDF,
	MimeDocx:     extractDocx,
	MimeXlsx:     extractXlsx,
	MimeText:     extractPlainText,
	MimeCSV:      extractPlainText,
	MimeMarkdown: extractPlainText,
}

// ExtractTextFromFile validates the declared content type against the bytes'
// magic signature, then dispatches to the matching extractor. An empty result
// is not an error here; the orchestrator decides what empty text means.
func ExtractTextFromFile(data []byte, contentType, filename string) (string, error) {
	// Strip any charset or boundary parameters from the declared type.
	declared := contentType
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = declared[:i]
	}
	declared = strings.TrimSpace(strings.ToLower(declared))

	extract, ok := extractors[declared]
	if !ok {
		return "", &core.UnsupportedFormatError{ContentType: declared}
	}

	if err := validateMagicBytes(data, declared); err != nil {
		return "", err
	}

	text, err := extract(data)
	if err != nil {
		return "", fmt.Errorf("extract %q (%s): %w", filename, declared, err)
	}
	return text, nil
}

// validateMagicBytes rejects content whose detected type disagrees with the
// declared one, so a disguised upload never reaches a parser. Text-family
// declarations are all checked against the text/plain ancestor because
// sniffing cannot tell CSV from Markdown from plain prose reliably.
func validateMagicBytes(data []byte, declared string) error {
	detected := mimetype.Detect(data)

	want := declared
	switch declared {
	case MimeText, MimeCSV, MimeMarkdown:
		want = MimeText
	}

	// Walk the detected type and its ancestors; text/csv has parent
	// text/plain, docx has parent application/zip, and so on.
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(want) {
			return nil
		}
	}

	return &core.ContentTypeMismatchError{Declared: declared, Detected: detected.String()}
}

func extractPDF(data []byte) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), MimePDF, false)
	if err != nil {
		return "", err
	}
	return res.Body, nil
}

func extractDocx(data []byte) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), MimeDocx, false)
	if err != nil {
		return "", err
	}
	return res.Body, nil
}

// extractXlsx concatenates every sheet as CSV-like text, each prefixed with
// its sheet name, so tabular context survives into the chunks.
func extractXlsx(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}

		sb.WriteString("Sheet: ")
		sb.WriteString(sheet)
		sb.WriteString("\n")
		for _, row := range rows {
			sb.WriteString(strings.Join(row, ","))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func extractPlainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("content is not valid UTF-8")
	}
	return string(data), nil
}
