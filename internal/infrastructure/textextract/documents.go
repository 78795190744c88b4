package textextract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// extractPDF returns the text of every readable page. A structural failure part way
// through returns what was gathered so far along with the error.
func extractPDF(data []byte) (text string, err error) {
	var builder strings.Builder
	defer func() {
		if r := recover(); r != nil {
			text = builder.String()
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			return builder.String(), fmt.Errorf("read pdf page %d: %w", i, pageErr)
		}
		if builder.Len() > 0 && pageText != "" {
			builder.WriteString("\n")
		}
		builder.WriteString(pageText)
	}
	return builder.String(), nil
}

// extractDocx returns the raw text of a DOCX body, one line per paragraph.
func extractDocx(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("docx parser panic: %v", r)
		}
	}()

	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}
	defer doc.Close()

	return documentText(doc.Editable().GetContent())
}

// documentText flattens WordprocessingML into text: w:t runs are kept, w:tab becomes
// a tab, w:br and paragraph ends become newlines.
func documentText(content string) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(content))
	var builder strings.Builder
	inText := false

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return strings.TrimRight(builder.String(), "\n"), fmt.Errorf("decode docx xml: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				builder.WriteString("\t")
			case "br", "cr":
				builder.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				builder.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				builder.Write(t)
			}
		}
	}

	return strings.TrimRight(builder.String(), "\n"), nil
}
