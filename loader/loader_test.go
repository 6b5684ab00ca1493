package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpus/core"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRegistryDispatch(t *testing.T) {
	reg := DefaultRegistry()

	l, err := reg.ForFile("notes.txt")
	require.NoError(t, err)
	assert.IsType(t, &TextLoader{}, l)

	l, err = reg.ForFile("REPORT.MD")
	require.NoError(t, err)
	assert.IsType(t, &TextLoader{}, l)

	l, err = reg.ForFile("data.csv")
	require.NoError(t, err)
	assert.IsType(t, &CSVLoader{}, l)

	l, err = reg.ForFile("paper.pdf")
	require.NoError(t, err)
	assert.IsType(t, &DocconvLoader{}, l)
}

func TestRegistryUnsupportedExtension(t *testing.T) {
	reg := DefaultRegistry()

	_, err := reg.ForFile("archive.zip")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnsupportedFormat))
	assert.Contains(t, err.Error(), "zip")
}

func TestRegistryNoExtension(t *testing.T) {
	reg := DefaultRegistry()

	_, err := reg.ForFile("README")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnsupportedFormat))
}

func TestRegistrySupported(t *testing.T) {
	reg := NewRegistry(NewTextLoader(), NewCSVLoader())
	assert.Equal(t, []string{"csv", "log", "md", "txt"}, reg.Supported())
}

func TestTextLoaderLoad(t *testing.T) {
	path := writeFile(t, "notes.txt", "hello world\nsecond line\n")

	content, err := NewTextLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "hello world\nsecond line\n", content.Text)
	assert.Equal(t, 1, content.Pages)
}

func TestTextLoaderInvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xfe, 0xfd}, 0o644))

	_, err := NewTextLoader().Load(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrCorruptInput))
}

func TestTextLoaderMissingFile(t *testing.T) {
	_, err := NewTextLoader().Load(context.Background(), filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, core.ErrCorruptInput))
}

func TestCSVLoaderFlattensRows(t *testing.T) {
	path := writeFile(t, "data.csv", "name,age\nalice,30\nbob,25\n")

	content, err := NewCSVLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "name, age\nalice, 30\nbob, 25\n", content.Text)
}

func TestCSVLoaderMalformed(t *testing.T) {
	path := writeFile(t, "broken.csv", "a,\"unterminated\nb,2\n")

	_, err := NewCSVLoader().Load(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrCorruptInput))
}

func TestCSVLoaderRaggedRows(t *testing.T) {
	path := writeFile(t, "ragged.csv", "a,b,c\n1,2\n")

	content, err := NewCSVLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "a, b, c\n1, 2\n", content.Text)
}

func TestEstimatePages(t *testing.T) {
	assert.Equal(t, 1, estimatePages(""))
	assert.Equal(t, 1, estimatePages("short"))
	assert.Equal(t, 2, estimatePages(string(make([]byte, charsPerPage+1))))
}

func TestNormalizeExtension(t *testing.T) {
	assert.Equal(t, "pdf", NormalizeExtension("/tmp/Report.PDF"))
	assert.Equal(t, "txt", NormalizeExtension("a.b.txt"))
	assert.Equal(t, "", NormalizeExtension("README"))
}

func TestLoadCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTextLoader().Load(ctx, "irrelevant.txt")
	require.ErrorIs(t, err, context.Canceled)
}
