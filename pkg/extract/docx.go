package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// docx files are zip archives; the body text lives in word/document.xml as
// WordprocessingML. Paragraphs become lines, runs within a paragraph are
// concatenated.

const docxDocumentPath = "word/document.xml"

func extractDocx(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("opening docx %s: %w", path, err)
	}
	defer archive.Close()

	var document *zip.File
	for _, f := range archive.File {
		if f.Name == docxDocumentPath {
			document = f
			break
		}
	}
	if document == nil {
		return "", fmt.Errorf("docx %s has no %s", path, docxDocumentPath)
	}

	reader, err := document.Open()
	if err != nil {
		return "", fmt.Errorf("opening %s in %s: %w", docxDocumentPath, path, err)
	}
	defer reader.Close()

	return readDocumentXML(reader)
}

// readDocumentXML streams through WordprocessingML, collecting the character
// data of every <w:t> element and inserting a newline at each paragraph end.
func readDocumentXML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var b strings.Builder
	inText := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decoding document xml: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}

	return strings.TrimRight(b.String(), "\n"), nil
}
