package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
	"github.com/parchmentlabs/clauseseek/internal/core/ports/driven"
)

func TestPriority(t *testing.T) {
	assert.Equal(t, 5, New().Priority(), "plain text is the low-priority fallback")
}

func TestNormalise_SinglePage(t *testing.T) {
	content := []byte("The premium is payable annually.\n\nA grace period applies.")
	raw := &driven.RawDocument{URI: "/docs/policy.txt", MIMEType: "text/plain", Content: content}

	doc, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	require.Len(t, doc.Pages, 1)
	assert.Equal(t, 1, doc.Pages[0].Number)
	assert.Contains(t, doc.Pages[0].Text, "grace period")
	assert.Equal(t, domain.ContentID(content), doc.ID)
	assert.Equal(t, "policy", doc.Title)
}

func TestNormalise_FormFeedPages(t *testing.T) {
	raw := &driven.RawDocument{
		URI:     "policy.txt",
		Content: []byte("Page one text.\fPage two text.\f\fPage four text."),
	}

	doc, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, doc.Pages, 3)
	assert.Equal(t, "Page one text.", doc.Pages[0].Text)
	assert.Equal(t, "Page two text.", doc.Pages[1].Text)
	assert.Equal(t, "Page four text.", doc.Pages[2].Text)
}

func TestNormalise_NormalisesLineEndings(t *testing.T) {
	raw := &driven.RawDocument{URI: "policy.txt", Content: []byte("line one\r\nline two")}

	doc, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", doc.Pages[0].Text)
}

func TestNormalise_Empty(t *testing.T) {
	raw := &driven.RawDocument{URI: "empty.txt", Content: []byte("   \n\t ")}
	_, err := New().Normalise(context.Background(), raw)
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
}

func TestNormalise_Nil(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTitleFromURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"/docs/health_policy.pdf", "health policy"},
		{"https://example.com/files/leave-rules.docx", "leave rules"},
		{"notes", "notes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TitleFromURI(tt.uri), tt.uri)
	}
}
