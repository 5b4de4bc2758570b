package extract_test

import (
	"archive/zip"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stacks/pkg/extract"
)

// writeDocx builds a minimal docx archive containing the given
// WordprocessingML body and returns its path.
func writeDocx(dir, name, body string) string {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	Expect(err).NotTo(HaveOccurred())
	defer f.Close()

	w := zip.NewWriter(f)
	doc, err := w.Create("word/document.xml")
	Expect(err).NotTo(HaveOccurred())

	xml := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body>` + body + `</w:body></w:document>`
	_, err = doc.Write([]byte(xml))
	Expect(err).NotTo(HaveOccurred())
	Expect(w.Close()).To(Succeed())

	return path
}

var _ = Describe("Extract", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	Describe("Supported", func() {
		It("accepts txt, md and docx", func() {
			Expect(extract.Supported(".txt")).To(BeTrue())
			Expect(extract.Supported(".md")).To(BeTrue())
			Expect(extract.Supported(".docx")).To(BeTrue())
		})

		It("matches case-insensitively", func() {
			Expect(extract.Supported(".TXT")).To(BeTrue())
			Expect(extract.Supported(".Docx")).To(BeTrue())
		})

		It("rejects unknown extensions", func() {
			Expect(extract.Supported(".pdf")).To(BeFalse())
			Expect(extract.Supported("")).To(BeFalse())
		})
	})

	Describe("plain text documents", func() {
		It("returns txt contents verbatim", func() {
			path := filepath.Join(dir, "notes.txt")
			Expect(os.WriteFile(path, []byte("first line\nsecond line"), 0o644)).To(Succeed())

			text, err := extract.Extract(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("first line\nsecond line"))
		})

		It("returns markdown contents verbatim", func() {
			path := filepath.Join(dir, "readme.md")
			Expect(os.WriteFile(path, []byte("# Title\n\nBody."), 0o644)).To(Succeed())

			text, err := extract.Extract(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("# Title\n\nBody."))
		})
	})

	Describe("docx documents", func() {
		It("extracts paragraph text", func() {
			path := writeDocx(dir, "doc.docx",
				`<w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>`+
					`<w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p>`)

			text, err := extract.Extract(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("First paragraph.\nSecond paragraph."))
		})

		It("concatenates runs within a paragraph", func() {
			path := writeDocx(dir, "runs.docx",
				`<w:p><w:r><w:t>Hello </w:t></w:r><w:r><w:t>world</w:t></w:r></w:p>`)

			text, err := extract.Extract(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("Hello world"))
		})

		It("fails on an archive without a document part", func() {
			path := filepath.Join(dir, "empty.docx")
			f, err := os.Create(path)
			Expect(err).NotTo(HaveOccurred())
			w := zip.NewWriter(f)
			Expect(w.Close()).To(Succeed())
			Expect(f.Close()).To(Succeed())

			_, err = extract.Extract(path)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("unsupported documents", func() {
		It("returns ErrUnsupportedFormat", func() {
			path := filepath.Join(dir, "image.png")
			Expect(os.WriteFile(path, []byte{0x89, 0x50}, 0o644)).To(Succeed())

			_, err := extract.Extract(path)
			Expect(err).To(MatchError(extract.ErrUnsupportedFormat))
		})
	})
})
