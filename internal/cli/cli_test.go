package cli

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandTree(t *testing.T) {
	root := NewRootCommand()

	for _, path := range [][]string{
		{"start"},
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "version"},
		{"seed"},
		{"worker", "run"},
		{"import"},
		{"export"},
		{"purge"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestArgumentValidation(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"import needs a file", []string{"import", "products"}, "accepts 2 arg(s)"},
		{"unknown dataset", []string{"export", "invoices"}, "unknown dataset"},
		{"purge needs confirmation", []string{"purge"}, "--yes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			root := NewRootCommand()
			root.SetArgs(tc.args)
			root.SetOut(&bytes.Buffer{})
			root.SetErr(&bytes.Buffer{})
			err := root.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestWriteExport(t *testing.T) {
	write := func(w io.Writer) error {
		_, err := io.WriteString(w, "ID;NOMBRE\n1;BEBIDAS\n")
		return err
	}

	t.Run("stdout", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, writeExport(&out, "", write))
		assert.Equal(t, "ID;NOMBRE\n1;BEBIDAS\n", out.String())
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "categories.csv")
		require.NoError(t, writeExport(io.Discard, path, write))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "ID;NOMBRE\n1;BEBIDAS\n", string(data))
	})

	t.Run("failed export leaves nothing behind", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "products.csv")
		boom := errors.New("connection reset")

		err := writeExport(io.Discard, path, func(w io.Writer) error {
			_, _ = io.WriteString(w, "ID;DESCRIPCION\n")
			return boom
		})
		require.ErrorIs(t, err, boom)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("failed export keeps the previous file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "clients.csv")
		require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

		err := writeExport(io.Discard, path, func(io.Writer) error { return errors.New("boom") })
		require.Error(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "old", string(data))
	})
}
