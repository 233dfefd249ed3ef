package merger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperr "github.com/ryabkov82/labmerge/internal/errors"
)

const master = "X-Materials_master_data.csv"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	return string(data)
}

func TestMerge_ScenarioB(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "hall_xlab.csv", "X,Y,Z\n1,2,3\n4,5,6\n")
	writeFile(t, dir, "other.csv", "P,Q\np1,q1\n")
	writeFile(t, dir, "notes.txt", "ignored")

	m := NewCSVMerger(Options{MasterName: master, IndexColumn: true})
	res, err := m.Merge(MergeRequest{InputDirs: []string{dir}, DestDir: dir})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, 5, res.Columns)
	assert.Equal(t, filepath.Join(dir, master), res.MasterPath)
	assert.Equal(t, []string{filepath.Join(dir, "hall_xlab.csv"), filepath.Join(dir, "other.csv")}, res.Inputs)
	assert.Equal(t, ",X,Y,Z,P,Q\n0,1,2,3,p1,q1\n1,4,5,6,,\n", readFile(t, res.MasterPath))
}

func TestMerge_ConfirmationRequired(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", "A\n1\n")
	existing := writeFile(t, dir, master, "old master\n")

	m := NewCSVMerger(Options{MasterName: master})

	_, err := m.Merge(MergeRequest{InputDirs: []string{dir}, DestDir: dir})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeConfirmationRequired))
	assert.Equal(t, existing, apperr.GetPath(err))
	assert.Equal(t, "old master\n", readFile(t, existing), "nothing written before confirmation")

	res, err := m.Merge(MergeRequest{InputDirs: []string{dir}, DestDir: dir, Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.csv")}, res.Inputs, "previous master is not an input")
	assert.Equal(t, "A\n1\n", readFile(t, existing))
}

func TestMerge_ExclusionWithRelativePaths(t *testing.T) {
	root := t.TempDir()
	data := filepath.Join(root, "data")
	require.NoError(t, os.Mkdir(data, 0o755))
	writeFile(t, data, "a.csv", "A\n1\n2\n")
	writeFile(t, data, master, ",A,OLD\n0,1,x\n")
	chdir(t, root)

	m := NewCSVMerger(Options{MasterName: master})

	// input spelled relative, destination spelled absolute
	res, err := m.Merge(MergeRequest{InputDirs: []string{"data"}, DestDir: data, Overwrite: true})
	require.NoError(t, err)
	require.Len(t, res.Inputs, 1)
	assert.Equal(t, "a.csv", filepath.Base(res.Inputs[0]))
	assert.Equal(t, 1, res.Columns)

	kept := FilterExcluded(
		[]string{filepath.Join("data", "a.csv"), filepath.Join("data", ".", master)},
		filepath.Join(data, master),
	)
	assert.Equal(t, []string{filepath.Join("data", "a.csv")}, kept)
}

func TestMerge_SourceAndDestinationUnion(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, src, "procurement.csv", "Supplier\nacme\n")
	writeFile(t, dst, "hall_xlab.csv", "source_file,X\na_Hall.txt,1\nb_Hall.txt,2\n")

	m := NewCSVMerger(Options{MasterName: master})
	res, err := m.Merge(MergeRequest{InputDirs: []string{src, dst, src}, DestDir: dst})
	require.NoError(t, err)

	assert.Len(t, res.Inputs, 2, "repeated directory is listed once")
	assert.Equal(t, "Supplier,source_file,X\nacme,a_Hall.txt,1\n,b_Hall.txt,2\n", readFile(t, res.MasterPath))
}

func TestMerge_ExplicitInputsStillExcludeMaster(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "A\n1\n")
	old := writeFile(t, dir, master, "A\n9\n")

	m := NewCSVMerger(Options{MasterName: master})
	res, err := m.Merge(MergeRequest{Inputs: []string{a, old}, DestDir: dir, Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, []string{a}, res.Inputs)
}

func TestMerge_EmptyInputSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", "A\n1\n")
	empty := writeFile(t, dir, "b.csv", "")

	res, err := NewCSVMerger(Options{MasterName: master}).Merge(MergeRequest{InputDirs: []string{dir}, DestDir: dir})
	require.NoError(t, err)
	assert.Equal(t, []string{"empty input skipped: " + empty}, res.Warnings)
	assert.Equal(t, 1, res.Columns)
}

func TestMerge_OnlyEmptyInputsKeepMaster(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", "")
	writeFile(t, dir, "b.csv", "")
	existing := writeFile(t, dir, master, ",A\n0,1\n")

	res, err := NewCSVMerger(Options{MasterName: master, IndexColumn: true, XLSX: true}).
		Merge(MergeRequest{InputDirs: []string{dir}, DestDir: dir, Overwrite: true})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, apperr.HasCode(err, apperr.CodeMalformedInput))
	assert.Contains(t, err.Error(), "a.csv")
	assert.Equal(t, ",A\n0,1\n", readFile(t, existing))
	assert.NoFileExists(t, filepath.Join(dir, "X-Materials_master_data.xlsx"))
}

func TestMerge_MasterNotWritable(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, src, "a.csv", "A\n1\n")
	blocked := filepath.Join(dst, master)
	require.NoError(t, os.Mkdir(blocked, 0o755))

	// a directory in place of the master also counts as an existing master
	_, err := NewCSVMerger(Options{MasterName: master}).
		Merge(MergeRequest{InputDirs: []string{src}, DestDir: dst, Overwrite: true})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeFileAccess))
	assert.Equal(t, blocked, apperr.GetPath(err))
	assert.DirExists(t, blocked)
}

func TestMerge_NoCandidates(t *testing.T) {
	dir := t.TempDir()
	_, err := NewCSVMerger(Options{MasterName: master}).Merge(MergeRequest{InputDirs: []string{dir}, DestDir: dir})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeNoMatchingFiles))
	assert.NoFileExists(t, filepath.Join(dir, master))
}

func TestMerge_MalformedInput(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.csv", "A\n1,2\n")

	_, err := NewCSVMerger(Options{MasterName: master}).Merge(MergeRequest{InputDirs: []string{dir}, DestDir: dir})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeMalformedInput))
}

func TestMerge_XLSXOutput(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "hall_xlab.csv", "source_file,Temp,Note\na_Hall.txt,300,007\nb_Hall.txt,2.5,ok\n")

	m := NewCSVMerger(Options{MasterName: master, IndexColumn: true, XLSX: true})
	res, err := m.Merge(MergeRequest{InputDirs: []string{dir}, DestDir: dir})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "X-Materials_master_data.xlsx"), res.XLSXPath)

	f, err := excelize.OpenFile(res.XLSXPath)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"merged"}, f.GetSheetList())
	rows, err := f.GetRows("merged")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"", "source_file", "Temp", "Note"},
		{"0", "a_Hall.txt", "300", "007"},
		{"1", "b_Hall.txt", "2.5", "ok"},
	}, rows)

	t.Run("xlsx master is not merged back", func(t *testing.T) {
		xm := NewCSVMerger(Options{MasterName: master, XLSX: true, XLSXInputs: true})
		inputs, err := xm.Candidates(MergeRequest{InputDirs: []string{dir}, DestDir: dir})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "hall_xlab.csv")}, inputs)
	})
}

func TestMerge_XLSXInputs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", "A\n1\n2\n")

	wb := excelize.NewFile()
	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &[]interface{}{"Batch", "Press"}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A2", &[]interface{}{"B-1", 120}))
	require.NoError(t, wb.SaveAs(filepath.Join(dir, "hot_press.xlsx")))
	require.NoError(t, wb.Close())

	t.Run("ignored by default", func(t *testing.T) {
		res, err := NewCSVMerger(Options{MasterName: master}).
			Merge(MergeRequest{InputDirs: []string{dir}, DestDir: dir, Overwrite: true})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Columns)
	})

	t.Run("merged when enabled", func(t *testing.T) {
		res, err := NewCSVMerger(Options{MasterName: master, XLSXInputs: true}).
			Merge(MergeRequest{InputDirs: []string{dir}, DestDir: dir, Overwrite: true})
		require.NoError(t, err)
		assert.Equal(t, 3, res.Columns)
		assert.Equal(t, "A,Batch,Press\n1,B-1,120\n2,,\n", readFile(t, res.MasterPath))
	})
}

func TestListCandidates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.csv", "B\n")
	writeFile(t, dir, "a.CSV", "A\n")
	writeFile(t, dir, "~$book.xlsx", "")
	writeFile(t, dir, "c.xlsx", "")
	writeFile(t, dir, master, "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.csv"), 0o755))

	files, err := ListCandidates(dir, false, filepath.Join(dir, master))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.CSV"), filepath.Join(dir, "b.csv")}, files)

	files, err = ListCandidates(dir, true, filepath.Join(dir, master))
	require.NoError(t, err)
	assert.Len(t, files, 3)

	_, err = ListCandidates(filepath.Join(dir, "missing"), false)
	assert.True(t, apperr.HasCode(err, apperr.CodeFileAccess))
}

func TestCellValue(t *testing.T) {
	tests := []struct {
		in   string
		want interface{}
	}{
		{"", nil},
		{"42", int64(42)},
		{"-3", int64(-3)},
		{"2.5", 2.5},
		{"0.5", 0.5},
		{"1e17", 1e17},
		{"007", "007"},
		{"+1", "+1"},
		{" 12", " 12"},
		{"NaN", "NaN"},
		{"Inf", "Inf"},
		{"A-17", "A-17"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, cellValue(tt.in))
		})
	}
}
