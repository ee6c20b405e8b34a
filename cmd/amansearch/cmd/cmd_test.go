package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/pkg/document"
	"github.com/Aman-CERP/amansearch/pkg/index"
	"github.com/Aman-CERP/amansearch/pkg/version"
)

const products = `id: kettle-1
fields:
  - name: title
    type: string
    value: Blue Kettle
    analyze: true
  - name: price
    type: double
    value: 24.5
  - name: status
    type: enum
    value: active
---
id: kettle-2
fields:
  - name: title
    type: string
    value: Red Kettle
    analyze: true
  - name: price
    type: double
    value: 60
  - name: status
    type: enum
    value: retired
---
id: mug-1
fields:
  - name: title
    type: string
    value: <b>Blue</b> Mug
    analyze: true
    sanitize: true
  - name: price
    type: double
    value: 8
`

// env isolates a CLI run: HOME, XDG config and the index root all point
// into temp directories.
type env struct {
	t    *testing.T
	root string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("AMANSEARCH_INDEX_ROOT", "")
	return &env{t: t, root: filepath.Join(home, "indexes")}
}

func (e *env) run(stdin string, args ...string) (string, error) {
	e.t.Helper()
	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--root", e.root}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *env) seed() {
	e.t.Helper()
	out, err := e.run(products, "insert", "catalog")
	require.NoError(e.t, err)
	require.Contains(e.t, out, "inserted 3 documents into catalog")
}

func (e *env) search(args ...string) index.SearchResult {
	e.t.Helper()
	out, err := e.run("", append([]string{"search", "catalog", "-f", "json"}, args...)...)
	require.NoError(e.t, err)
	var res index.SearchResult
	require.NoError(e.t, json.Unmarshal([]byte(out), &res))
	return res
}

func ids(res index.SearchResult) []string {
	out := make([]string, len(res.Hits))
	for i, h := range res.Hits {
		out[i] = h.DocumentID
	}
	return out
}

func TestVersionCmd(t *testing.T) {
	e := newEnv(t)

	out, err := e.run("", "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, version.Version+"\n", out)

	out, err = e.run("", "version", "--json")
	require.NoError(t, err)
	var info version.BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Version, info.Version)
}

func TestInsertAndSearch_ByField(t *testing.T) {
	// Given: three documents
	e := newEnv(t)
	e.seed()

	// When: searching for a title token
	res := e.search("-F", "title=string:blue")

	// Then: both blue items match, with their stored fields
	assert.ElementsMatch(t, []string{"kettle-1", "mug-1"}, ids(res))
	assert.Equal(t, uint64(2), res.Total)
}

func TestSearch_SanitizedFieldIsStoredClean(t *testing.T) {
	e := newEnv(t)
	e.seed()

	res := e.search("-F", "title=string:mug")

	require.Len(t, res.Hits, 1)
	assert.Equal(t, "Blue Mug", res.Hits[0].Fields["title"])
}

func TestSearch_RangeSortAndFilter(t *testing.T) {
	e := newEnv(t)
	e.seed()

	// Ascending price over an open-ended range
	res := e.search("--range", "price=double:5..", "--sort", "price:double", "--asc")
	assert.Equal(t, []string{"mug-1", "kettle-1", "kettle-2"}, ids(res))

	// Enum filter narrows without scoring
	res = e.search("--range", "price=double:5..", "--filter", "status=enum:active")
	assert.Equal(t, []string{"kettle-1"}, ids(res))
}

func TestSearch_FilterMatchesKeywordFieldVerbatim(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(`id: k-1
fields:
  - name: color
    type: string
    value: Red
  - name: price
    type: double
    value: 10
---
id: k-2
fields:
  - name: color
    type: string
    value: red
  - name: price
    type: double
    value: 12
`, "insert", "swatches")
	require.NoError(t, err)

	// When: filtering on the mixed-case value
	out, err := e.run("", "search", "swatches", "-f", "json",
		"--range", "price=double:0..", "--filter", "color=string:Red")
	require.NoError(t, err)

	// Then: only the exact keyword matches
	var res index.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []string{"k-1"}, ids(res))
}

func TestSearch_FuzzyText(t *testing.T) {
	e := newEnv(t)
	e.seed()

	res := e.search("--text", "kettel", "--in", "title", "--fuzzy", "2")

	assert.ElementsMatch(t, []string{"kettle-1", "kettle-2"}, ids(res))
}

func TestSearch_Paging(t *testing.T) {
	e := newEnv(t)
	e.seed()

	res := e.search("--sort", "price:double", "--start", "1", "-n", "1")

	assert.Equal(t, uint64(3), res.Total)
	assert.Equal(t, []string{"kettle-1"}, ids(res))
}

func TestSearch_TextOutput(t *testing.T) {
	e := newEnv(t)
	e.seed()

	out, err := e.run("", "search", "catalog", "-F", "title=string:red")

	require.NoError(t, err)
	assert.Contains(t, out, "1. kettle-2")
	assert.Contains(t, out, "1 of 1 matches")
}

func TestSearch_BadFlags(t *testing.T) {
	e := newEnv(t)

	_, err := e.run("", "search", "catalog", "-f", "xml")
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeInvalidQuery))

	_, err = e.run("", "search", "catalog", "-F", "title")
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeInvalidQuery))

	_, err = e.run("", "search", "catalog", "-F", "price=double:cheap")
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeTypeMismatch))

	_, err = e.run("", "search", "catalog", "--text", "kettle")
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeInvalidQuery))

	_, err = e.run("", "search", "catalog", "-n", "0")
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeOutOfRange))
}

func TestSearch_InvalidIndexName(t *testing.T) {
	e := newEnv(t)

	_, err := e.run("", "search", "../escape")

	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeInvalidName))
}

func TestCount(t *testing.T) {
	e := newEnv(t)
	e.seed()

	out, err := e.run("", "count", "catalog")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, err = e.run("", "count", "catalog", "--range", "price=double:..30")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestDelete_ByIDAndByQuery(t *testing.T) {
	e := newEnv(t)
	e.seed()

	out, err := e.run("", "delete", "catalog", "kettle-1")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 1 documents from catalog")

	out, err = e.run("", "delete", "catalog", "--range", "price=double:50..")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 1 documents from catalog")

	assert.Equal(t, []string{"mug-1"}, ids(e.search()))
}

func TestDelete_NeedsTarget(t *testing.T) {
	e := newEnv(t)

	_, err := e.run("", "delete", "catalog")
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeInvalidQuery))

	_, err = e.run("", "delete", "catalog", "kettle-1", "-F", "title=string:blue")
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeInvalidQuery))
}

func TestInsert_FromFileGeneratesMissingIDs(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(t.TempDir(), "docs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fields:\n  - name: title\n    type: string\n    value: anonymous\n"), 0o644))

	_, err := e.run("", "insert", "notes", path)
	require.NoError(t, err)

	out, err := e.run("", "search", "notes", "-f", "json")
	require.NoError(t, err)
	var res index.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Hits, 1)
	assert.Len(t, res.Hits[0].DocumentID, 36)
}

func TestInsert_EmptyStream(t *testing.T) {
	e := newEnv(t)

	out, err := e.run("", "insert", "catalog")

	require.NoError(t, err)
	assert.Contains(t, out, "no documents to insert")
}

func TestInfo(t *testing.T) {
	e := newEnv(t)
	e.seed()

	out, err := e.run("", "info", "catalog", "-f", "json")
	require.NoError(t, err)
	var info indexInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "catalog", info.Name)
	require.NotNil(t, info.Documents)
	assert.Equal(t, uint64(3), *info.Documents)
	assert.Equal(t, int64(3), info.Inserted)
	assert.Equal(t, "standard", info.Analyzer)

	out, err = e.run("", "info")
	require.NoError(t, err)
	assert.Contains(t, out, "catalog")

	_, err = e.run("", "info", "missing")
	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeDirectoryUnavailable))
}

func TestConfigCmd(t *testing.T) {
	e := newEnv(t)

	out, err := e.run("", "config", "show", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, e.root)

	out, err = e.run("", "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote default configuration")

	out, err = e.run("", "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")

	out, err = e.run("", "config", "init", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Backup:")
}

func TestParseFieldFlag(t *testing.T) {
	name, v, err := parseFieldFlag("when=datetime:2026-01-02T03:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, "when", name)
	assert.Equal(t, document.TypeDateTime, v.Type())

	_, _, err = parseFieldFlag("when=2026")
	assert.Error(t, err)
}

func TestParseRangeFlag(t *testing.T) {
	name, lo, hi, err := parseRangeFlag("rank=integer:..10")
	require.NoError(t, err)
	assert.Equal(t, "rank", name)
	assert.Nil(t, lo)
	assert.Equal(t, document.IntValue(10), hi)

	_, _, _, err = parseRangeFlag("rank=integer:10")
	assert.Error(t, err)
}

func TestReadDocuments_RejectsBadType(t *testing.T) {
	_, err := readDocuments(strings.NewReader("id: a\nfields:\n  - name: n\n    type: quaternion\n    value: 1\n"))

	assert.True(t, amerrors.HasCode(err, amerrors.ErrCodeTypeMismatch))
}

func TestDoctorCmd(t *testing.T) {
	e := newEnv(t)
	e.seed()

	out, err := e.run("", "doctor", "--json")
	require.NoError(t, err)

	var report doctorReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, e.root, report.Root)
	assert.NotEqual(t, "failed", report.Status)
	names := make([]string, 0, len(report.Checks))
	for _, c := range report.Checks {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "catalog")
	assert.Contains(t, names, "index_locks")
}

func TestProfileFlags(t *testing.T) {
	e := newEnv(t)
	dir := t.TempDir()
	heap := filepath.Join(dir, "heap.prof")

	_, err := e.run("", "--profile-mem", heap, "count", "catalog")

	require.NoError(t, err)
	assert.FileExists(t, heap)
}
