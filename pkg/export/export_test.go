package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rosterTable() Table {
	return Table{
		Title:   "Course roster",
		Headers: []string{"id", "participant", "status"},
		Rows: [][]string{
			{"enr-1", "student stu-1", "active"},
			{"enr-2", "child, with comma", "dropped"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	assert.Equal(t, "application/pdf", f.ContentType())

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestRenderCSV(t *testing.T) {
	out, err := Render(FormatCSV, rosterTable())
	require.NoError(t, err)
	assert.Equal(t, "id,participant,status\nenr-1,student stu-1,active\nenr-2,\"child, with comma\",dropped\n", string(out))
}

func TestRenderPDF(t *testing.T) {
	out, err := Render(FormatPDF, rosterTable())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	wide := rosterTable()
	wide.Headers = []string{"a", "b", "c", "d", "e", "f"}
	wide.Rows = [][]string{{"1", "2", "3", "4", "5", "6"}}
	out, err = Render(FormatPDF, wide)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestRenderRejectsMalformedTables(t *testing.T) {
	_, err := Render(FormatCSV, Table{})
	assert.Error(t, err)

	table := rosterTable()
	table.Rows = append(table.Rows, []string{"only-one"})
	_, err = Render(FormatCSV, table)
	assert.Error(t, err)
}
