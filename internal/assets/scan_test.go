package assets

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))
}

func TestScan_EmptyDirectory(t *testing.T) {
	got, err := Scan(context.Background(), t.TempDir())
	require.NoError(t, err)

	raw, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"files":[],"folders":{}}`, string(raw))
}

func TestScan_NestedTree(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.png"))
	touch(t, filepath.Join(root, "b", "c.png"))

	got, err := Scan(context.Background(), root)
	require.NoError(t, err)

	want := Listing{
		Files: []string{"a.png"},
		Folders: map[string]Listing{
			"b": {Files: []string{"c.png"}, Folders: map[string]Listing{}},
		},
	}
	assert.Equal(t, want, got)
}

func TestScan_DeepTreeAndOrdering(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "orc10.png"))
	touch(t, filepath.Join(root, "Orc2.png"))
	touch(t, filepath.Join(root, "monsters", "undead", "lich.png"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	got, err := Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"Orc2.png", "orc10.png"}, got.Files)
	require.Contains(t, got.Folders, "empty")
	assert.Empty(t, got.Folders["empty"].Files)
	lich := got.Folders["monsters"].Folders["undead"]
	assert.Equal(t, []string{"lich.png"}, lich.Files)
}

func TestScan_SkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "real.png"))
	if err := os.Symlink(filepath.Join(root, "real.png"), filepath.Join(root, "link.png")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	require.NoError(t, os.Symlink(root, filepath.Join(root, "loop")))

	got, err := Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"real.png"}, got.Files)
	assert.Empty(t, got.Folders)
}

func TestScan_MissingPathFails(t *testing.T) {
	_, err := Scan(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if err == nil || !errors.Is(err, ErrIO) {
		t.Fatalf("want ErrIO, got %v", err)
	}
	assert.True(t, IsNotExist(err))
	assert.Contains(t, err.Error(), "nope")
}

func TestScan_UnreadableSubdirAbortsWholeScan(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	root := t.TempDir()
	touch(t, filepath.Join(root, "ok", "fine.png"))
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.MkdirAll(locked, 0o755))
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	got, err := Scan(context.Background(), root)
	require.ErrorIs(t, err, ErrIO)
	assert.Equal(t, Listing{}, got)
}

func TestScan_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := Scan(ctx, t.TempDir())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResolveSubdir(t *testing.T) {
	cases := []struct {
		name    string
		rel     string
		want    string
		wantErr bool
	}{
		{name: "empty is root", rel: "", want: "static/img"},
		{name: "dot is root", rel: ".", want: "static/img"},
		{name: "nested", rel: "monsters/undead", want: filepath.Join("static/img", "monsters", "undead")},
		{name: "parent escape", rel: "../secrets", wantErr: true},
		{name: "absolute", rel: "/etc", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveSubdir("static/img", tc.rel)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrOutsideRoot)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
