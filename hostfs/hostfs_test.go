package hostfs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenReadRoundtrips(t *testing.T) {
	dir := t.TempDir()
	driver := New(MountOptions{})

	target := filepath.Join(dir, "hello.txt")
	stream, code := driver.Fopen(target)
	require.Zero(t, code)

	n, code := stream.Write([]byte("hello world"))
	require.Zero(t, code)
	assert.Equal(t, 11, n)
	require.Zero(t, stream.Close())

	stream, code = driver.Fopen(target)
	require.Zero(t, code)
	buf := make([]byte, 11)
	n, code = stream.Read(buf)
	require.Zero(t, code)
	assert.Equal(t, "hello world", string(buf[:n]))
	require.Zero(t, stream.Close())
}

func TestListDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFile(filepath.Join(dir, "a.txt"), "a"))
	require.NoError(t, writeFile(filepath.Join(dir, "b.txt"), "b"))

	driver := New(MountOptions{})
	entries, code := driver.List(dir, false)
	require.Zero(t, code)
	assert.Len(t, entries, 2)
}

func TestRemoveNonEmptyDirFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFile(filepath.Join(dir, "a.txt"), "a"))

	driver := New(MountOptions{})
	code := driver.Remove(dir)
	assert.NotZero(t, code)
}

func TestOpenFileCountTracksOutstandingHandles(t *testing.T) {
	dir := t.TempDir()
	driver := New(MountOptions{})

	target := filepath.Join(dir, "f.txt")
	s1, code := driver.Fopen(target)
	require.Zero(t, code)
	s2, code := driver.Fopen(target)
	require.Zero(t, code)
	assert.Equal(t, 2, driver.OpenFileCount())

	require.Zero(t, s1.Close())
	assert.Equal(t, 1, driver.OpenFileCount())
	require.Zero(t, s2.Close())
	assert.Equal(t, 0, driver.OpenFileCount())
}

func writeFile(path, contents string) error {
	driver := New(MountOptions{})
	stream, code := driver.Fopen(path)
	if code != 0 {
		return code
	}
	defer stream.Close()
	_, code = stream.Write([]byte(contents))
	if code != 0 {
		return code
	}
	return nil
}
