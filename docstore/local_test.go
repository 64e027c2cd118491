package docstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
)

func note(body string) leave.File {
	return leave.File{Name: "note.pdf", ContentType: "application/pdf", Body: strings.NewReader(body)}
}

func TestLocal_UploadAndRemove(t *testing.T) {
	// GIVEN: A local store rooted in a temp dir
	// WHEN: Uploading then removing a document
	// THEN: The file is written under the root and the URL points at it

	ctx := context.Background()
	root := t.TempDir()
	store, err := NewLocal(root, "http://files.test/docs/")
	require.NoError(t, err)

	res, err := store.Upload(ctx, note("%PDF-1.7"), "leaves/acme/emp-001/1-note.pdf")
	require.NoError(t, err)
	assert.Equal(t, "http://files.test/docs/leaves/acme/emp-001/1-note.pdf", res.URL)

	full := filepath.Join(root, "leaves", "acme", "emp-001", "1-note.pdf")
	content, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(content))

	require.NoError(t, store.Remove(ctx, res.URL))
	_, err = os.Stat(full)
	assert.True(t, os.IsNotExist(err))

	// Already gone
	assert.NoError(t, store.Remove(ctx, res.URL))
}

func TestLocal_NeverOverwrites(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocal(t.TempDir(), "http://files.test")
	require.NoError(t, err)

	_, err = store.Upload(ctx, note("first"), "leaves/a.pdf")
	require.NoError(t, err)
	_, err = store.Upload(ctx, note("second"), "leaves/a.pdf")
	assert.ErrorContains(t, err, "create document")
}

func TestLocal_StaysUnderRoot(t *testing.T) {
	ctx := context.Background()
	parent := t.TempDir()
	root := filepath.Join(parent, "docs")
	store, err := NewLocal(root, "http://files.test")
	require.NoError(t, err)

	res, err := store.Upload(ctx, note("x"), "../../escape.pdf")
	require.NoError(t, err)
	assert.Equal(t, "http://files.test/escape.pdf", res.URL)
	assert.FileExists(t, filepath.Join(root, "escape.pdf"))
	assert.NoFileExists(t, filepath.Join(parent, "escape.pdf"))

	_, err = store.Upload(ctx, note("x"), "..")
	assert.ErrorContains(t, err, "invalid document destination")
}

func TestLocal_RemoveForeignURL(t *testing.T) {
	store, err := NewLocal(t.TempDir(), "http://files.test")
	require.NoError(t, err)

	err = store.Remove(context.Background(), "https://elsewhere.test/a.pdf")
	assert.ErrorContains(t, err, "not hosted here")
}

func TestCleanKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "leaves/a.pdf", want: "leaves/a.pdf"},
		{in: "/leaves//a.pdf", want: "leaves/a.pdf"},
		{in: `leaves\acme\a.pdf`, want: "leaves/acme/a.pdf"},
		{in: "leaves/../../a.pdf", want: "a.pdf"},
		{in: "", wantErr: true},
		{in: "/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := cleanKey(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
