package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"

	"munidash/internal/core"
)

func TestReadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.csv")
	content := "\ufeffCLUES,Nombre Municipio Loc,Parteras\n" +
		"HGSSA001,Pachuca,2\n" +
		"HGSSA002,Tula,\n" +
		"\"HGSSA003\",\"Apan, Centro\",1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tb, err := New(path).ReadTable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"CLUES", "Nombre Municipio Loc", "Parteras"}, tb.Columns)
	require.Equal(t, 3, tb.Len())

	mun, ok := tb.Text(2, tb.ColumnIndex("Nombre Municipio Loc"))
	assert.True(t, ok)
	assert.Equal(t, "Apan, Centro", mun)

	_, ok = tb.Number(1, tb.ColumnIndex("Parteras"))
	assert.False(t, ok, "empty CSV field should be missing")
}

func TestReadMissingFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope.parquet")).ReadTable(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnavailable))
}

func TestReadEmptyCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	_, err := New(path).ReadTable(context.Background())
	assert.True(t, errors.Is(err, core.ErrUnavailable))
}

func TestReadMalformedParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.parquet")
	require.NoError(t, os.WriteFile(path, []byte("not a parquet file"), 0o644))
	_, err := New(path).ReadTable(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnavailable))
}

func TestReadParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.parquet")

	fw, err := local.NewLocalFileWriter(path)
	require.NoError(t, err)
	md := []string{
		"name=CLUES, type=BYTE_ARRAY, convertedtype=UTF8",
		"name=NOM_MUN, type=BYTE_ARRAY, convertedtype=UTF8",
		"name=Parteras, type=INT64",
	}
	cw, err := writer.NewCSVWriter(md, fw, 1)
	require.NoError(t, err)
	require.NoError(t, cw.Write([]interface{}{"HGSSA001", "Pachuca", int64(2)}))
	require.NoError(t, cw.Write([]interface{}{"XXYYY001", "Tula", int64(5)}))
	require.NoError(t, cw.WriteStop())
	require.NoError(t, fw.Close())

	tb, err := New(path).ReadTable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"CLUES", "NOM_MUN", "Parteras"}, tb.Columns)
	require.Equal(t, 2, tb.Len())

	clues, ok := tb.Text(1, 0)
	assert.True(t, ok)
	assert.Equal(t, "XXYYY001", clues)

	v, ok := tb.Number(0, 2)
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
}

func TestReadParquet_OptionalNullsStayAligned(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.parquet")

	fw, err := local.NewLocalFileWriter(path)
	require.NoError(t, err)
	md := []string{
		"name=CLUES, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL",
		"name=NOM_MUN, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL",
		"name=Parteras, type=INT64, repetitiontype=OPTIONAL",
	}
	cw, err := writer.NewCSVWriter(md, fw, 1)
	require.NoError(t, err)
	require.NoError(t, cw.Write([]interface{}{"HGSSA002", nil, nil}))
	require.NoError(t, cw.Write([]interface{}{nil, "Pachuca", int64(3)}))
	require.NoError(t, cw.Write([]interface{}{"HGSSA004", "Tula", int64(1)}))
	require.NoError(t, cw.WriteStop())
	require.NoError(t, fw.Close())

	tb, err := New(path).ReadTable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"CLUES", "NOM_MUN", "Parteras"}, tb.Columns)
	require.Equal(t, 3, tb.Len())

	clues, ok := tb.Text(0, 0)
	require.True(t, ok)
	assert.Equal(t, "HGSSA002", clues)
	_, ok = tb.Text(0, 1)
	assert.False(t, ok, "null municipality should be missing")
	_, ok = tb.Number(0, 2)
	assert.False(t, ok, "null count should be missing")

	_, ok = tb.Text(1, 0)
	assert.False(t, ok, "null CLUES should be missing")
	mun, ok := tb.Text(1, 1)
	require.True(t, ok)
	assert.Equal(t, "Pachuca", mun)
	v, ok := tb.Number(1, 2)
	require.True(t, ok)
	assert.Equal(t, 3.0, v)

	mun, ok = tb.Text(2, 1)
	require.True(t, ok)
	assert.Equal(t, "Tula", mun)
	v, ok = tb.Number(2, 2)
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
}
