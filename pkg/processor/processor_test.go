package processor

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessor_Prepare(t *testing.T) {
	tmp := t.TempDir()
	p := NewWithConfig(ProcessorConfig{TempDir: tmp, MaxSize: 1024})

	content := "%PDF-1.7 hello"
	doc, cleanup, err := p.Prepare("PDF A", "reports/Q1 report.pdf", strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, "PDF A", doc.Label)
	assert.Equal(t, "Q1 report.pdf", doc.Filename)
	assert.Equal(t, "Q1 report.pdf", filepath.Base(doc.Path))
	assert.Equal(t, int64(len(content)), doc.Size)

	sum := sha256.Sum256([]byte(content))
	assert.Equal(t, hex.EncodeToString(sum[:]), doc.SHA256)

	data, err := os.ReadFile(doc.Path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	cleanup()
	_, err = os.Stat(filepath.Dir(doc.Path))
	assert.True(t, os.IsNotExist(err))
}

func TestProcessor_PrepareTooLarge(t *testing.T) {
	tmp := t.TempDir()
	p := NewWithConfig(ProcessorConfig{TempDir: tmp, MaxSize: 2 * 1024 * 1024})

	big := strings.NewReader(strings.Repeat("x", 2*1024*1024+1))
	_, cleanup, err := p.Prepare("PDF B", "big.pdf", big)
	defer cleanup()

	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Contains(t, err.Error(), "PDF B exceeds 2MB")

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcessor_PrepareRequiresFilename(t *testing.T) {
	p := NewWithConfig(ProcessorConfig{TempDir: t.TempDir()})

	_, cleanup, err := p.Prepare("PDF A", "", strings.NewReader("x"))
	defer cleanup()
	assert.ErrorIs(t, err, ErrInvalidFile)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a.pdf", "a.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\doc.pdf`, "doc.pdf"},
		{"what?.pdf", "what_.pdf"},
		{"tab\there.pdf", "tabhere.pdf"},
		{"..", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFilename(tt.in))
		})
	}
}
