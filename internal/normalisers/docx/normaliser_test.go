package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
	"github.com/parchmentlabs/clauseseek/internal/core/ports/driven"
)

// createTestDOCX creates a minimal valid DOCX file in memory.
func createTestDOCX(documentXML, coreXML string) []byte {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	// Add [Content_Types].xml (required for valid DOCX)
	contentTypes, _ := w.Create("[Content_Types].xml")
	contentTypes.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`))

	if documentXML != "" {
		doc, _ := w.Create("word/document.xml")
		doc.Write([]byte(documentXML))
	}

	if coreXML != "" {
		core, _ := w.Create("docProps/core.xml")
		core.Write([]byte(coreXML))
	}

	w.Close()
	return buf.Bytes()
}

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()
	require.NotEmpty(t, mimeTypes)
	assert.Contains(t, mimeTypes, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_Success(t *testing.T) {
	docXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>GRACE PERIOD</w:t></w:r></w:p>
<w:p><w:r><w:t>A grace period of thirty days is provided for premium payment.</w:t></w:r></w:p>
</w:body>
</w:document>`

	coreXML := `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>Policy Wording</dc:title>
</cp:coreProperties>`

	content := createTestDOCX(docXML, coreXML)
	raw := &driven.RawDocument{
		URI:      "/path/to/policy.docx",
		MIMEType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Content:  content,
	}

	doc, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)

	assert.Equal(t, "Policy Wording", doc.Title)
	assert.Equal(t, domain.ContentID(content), doc.ID)
	assert.Contains(t, doc.Pages[0].Text, "GRACE PERIOD")
	assert.Contains(t, doc.Pages[0].Text, "thirty days")
	assert.Contains(t, doc.Pages[0].Text, "\n\n", "paragraphs keep blank-line boundaries")
}

func TestNormalise_PageBreakSplitsPages(t *testing.T) {
	docXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>First page text.</w:t></w:r></w:p>
<w:p><w:r><w:br w:type="page"/></w:r><w:r><w:t>Second page text.</w:t></w:r></w:p>
</w:body>
</w:document>`

	content := createTestDOCX(docXML, "")
	raw := &driven.RawDocument{URI: "policy.docx", Content: content}

	doc, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, doc.Pages, 2)
	assert.Equal(t, 1, doc.Pages[0].Number)
	assert.Contains(t, doc.Pages[0].Text, "First page")
	assert.Equal(t, 2, doc.Pages[1].Number)
	assert.Contains(t, doc.Pages[1].Text, "Second page")
}

func TestNormalise_TitleFallsBackToFilename(t *testing.T) {
	docXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body><w:p><w:r><w:t>Text.</w:t></w:r></w:p></w:body>
</w:document>`

	raw := &driven.RawDocument{
		URI:     "/docs/employee_leave-policy.docx",
		Content: createTestDOCX(docXML, ""),
	}

	doc, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "employee leave policy", doc.Title)
}

func TestNormalise_NilDocument(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_NotAZip(t *testing.T) {
	raw := &driven.RawDocument{URI: "bad.docx", Content: []byte("plain text, not a zip")}
	_, err := New().Normalise(context.Background(), raw)
	assert.ErrorIs(t, err, domain.ErrDocumentUnreadable)
}

func TestNormalise_MissingDocumentXML(t *testing.T) {
	raw := &driven.RawDocument{URI: "bad.docx", Content: createTestDOCX("", "")}
	_, err := New().Normalise(context.Background(), raw)
	assert.ErrorIs(t, err, domain.ErrDocumentUnreadable)
}

func TestNormalise_EmptyBody(t *testing.T) {
	docXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body></w:body>
</w:document>`

	raw := &driven.RawDocument{URI: "empty.docx", Content: createTestDOCX(docXML, "")}
	_, err := New().Normalise(context.Background(), raw)
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
}
