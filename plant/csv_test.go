package plant

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	prErrors "github.com/ezoic/plantreco/pkg/errors"
)

func TestEncodeRecords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeRecords(&buf, []Record{
		{Nom: "Aloe Vera", Humidite: "1", Lumiere: PleinSoleil, Difficulte: Facile},
		{Nom: "Plante, grasse", Humidite: "", Lumiere: MiOmbre, Difficulte: ""},
	}))

	want := "nom,humidite,lumiere,difficulte\n" +
		"Aloe Vera,1,plein soleil,facile\n" +
		"\"Plante, grasse\",,mi-ombre,\n"
	assert.Equal(t, want, buf.String())
}

func TestDecodeFrameStripsBOM(t *testing.T) {
	f, err := DecodeFrame(strings.NewReader("\ufeffnom,humidite\nAloe,1\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"nom", "humidite"}, f.Columns)
	assert.Equal(t, 0, f.Index("nom"))
}

func TestDecodeFrameErrors(t *testing.T) {
	_, err := DecodeFrame(strings.NewReader(""))
	assert.ErrorIs(t, err, prErrors.ErrEmptyData)

	_, err = DecodeFrame(strings.NewReader("a,b\n1,2,3\n"))
	assert.Error(t, err)
}

func TestWriteReadRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "plantes.csv")
	records := []Record{
		{Nom: "Monstera", Humidite: "3", Lumiere: MiOmbre, Difficulte: Moyen},
		{Nom: "Fougère", Humidite: "4.0", Lumiere: Ombre, Difficulte: Difficile},
	}
	require.NoError(t, WriteRecords(path, records))

	got, err := ReadRecords(path)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestReadRecordsMissingColumn(t *testing.T) {
	_, err := recordsFromCSV(t, "nom,humidite\nAloe,1\n")
	assert.ErrorIs(t, err, prErrors.ErrInvalidInput)
}

func recordsFromCSV(t *testing.T, data string) ([]Record, error) {
	t.Helper()
	f, err := DecodeFrame(strings.NewReader(data))
	require.NoError(t, err)
	return RecordsFromFrame(f)
}
