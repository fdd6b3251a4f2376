package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dupfind "github.com/mattkeenan/dupfind/pkg"
)

func sampleResult() *dupfind.Result {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &dupfind.Result{
		ID:         "3f6c1e7e-8a9b-4c1d-9e2f-0a1b2c3d4e5f",
		Root:       "/data",
		Algorithm:  "sha512",
		PrefixSize: 1024,
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Complete:   true,
		Duplicates: dupfind.DuplicateSet{
			5: {"aaaa": {"/data/a.txt", "/data/b.txt"}},
			4096: {
				"cccc": {"/data/x/1.bin", "/data/y/1.bin", "/data/z/1.bin"},
				"bbbb": {"/data/p", "/data/q"},
			},
		},
		Warnings: []dupfind.Warning{
			{Path: "/data/locked", Stage: dupfind.StageWalk, Reason: "unreadable directory: permission denied"},
		},
		Stats: dupfind.Stats{
			FilesDiscovered:  12,
			BytesRead:        20490,
			Errors:           1,
			DuplicateGroups:  3,
			DuplicateFiles:   7,
			ReclaimableBytes: 5 + 4096*3,
		},
	}
}

func TestFromResultEnvelope(t *testing.T) {
	r := FromResult(sampleResult())
	assert.Equal(t, "dupfind/duplicates", r.Schema)
	assert.Equal(t, 1, r.Version)
	assert.NoError(t, r.Check())

	groups := r.Groups()
	require.Len(t, groups, 3)
	assert.Equal(t, Group{Size: 4096, Digest: "bbbb", Paths: []string{"/data/p", "/data/q"}}, groups[0])
	assert.Equal(t, "cccc", groups[1].Digest)
	assert.Equal(t, int64(5), groups[2].Size)

	empty := FromResult(&dupfind.Result{ID: "x"})
	assert.NotNil(t, empty.Duplicates)
	assert.NotNil(t, empty.Warnings)
}

func TestCheckRejectsForeignDocuments(t *testing.T) {
	r := FromResult(sampleResult())
	r.Schema = "something/else"
	assert.Error(t, r.Check())

	r = FromResult(sampleResult())
	r.Version = dupfind.ReportVersion + 1
	assert.Error(t, r.Check())
}

func TestEncodeJSONLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, FromResult(sampleResult())))

	out := buf.String()
	assert.Contains(t, out, `"schema": "dupfind/duplicates"`)
	assert.Contains(t, out, `"scan_id": "3f6c1e7e-8a9b-4c1d-9e2f-0a1b2c3d4e5f"`)
	assert.Contains(t, out, `"5": {`)
	assert.Contains(t, out, `"reclaimable_bytes": 12293`)

	var emptyBuf bytes.Buffer
	require.NoError(t, EncodeJSON(&emptyBuf, FromResult(&dupfind.Result{})))
	assert.Contains(t, emptyBuf.String(), `"duplicates": {}`)
	assert.Contains(t, emptyBuf.String(), `"warnings": []`)
}

func TestDecodeStreamFormats(t *testing.T) {
	want := FromResult(sampleResult())

	for _, format := range []string{FormatJSON, FormatYAML, FormatMsgpack} {
		t.Run(format, func(t *testing.T) {
			enc, err := EncoderFor(format)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, enc(&buf, want))
			got, err := Decode(&buf, format)
			require.NoError(t, err)

			assert.Equal(t, want.ScanID, got.ScanID)
			assert.Equal(t, want.Duplicates, got.Duplicates)
			assert.Equal(t, want.Warnings, got.Warnings)
			assert.Equal(t, want.Stats, got.Stats)
			assert.True(t, want.StartedAt.Equal(got.StartedAt))
		})
	}
}

func TestDecodeRejectsOtherJSON(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"schema":"other","version":1}`), FormatJSON)
	assert.Error(t, err)

	_, err = Decode(strings.NewReader(`not json`), FormatJSON)
	assert.Error(t, err)

	_, err = Decode(strings.NewReader(``), FormatFdupes)
	assert.Error(t, err)
}

func TestEncodeFdupes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeFdupes(&buf, FromResult(sampleResult())))

	want := "/data/p\n/data/q\n\n" +
		"/data/x/1.bin\n/data/y/1.bin\n/data/z/1.bin\n\n" +
		"/data/a.txt\n/data/b.txt\n\n"
	assert.Equal(t, want, buf.String())

	buf.Reset()
	require.NoError(t, EncodeFdupes(&buf, FromResult(&dupfind.Result{})))
	assert.Empty(t, buf.String())
}

func TestEncodeFdupesToFileUsesVectoredWrites(t *testing.T) {
	r := FromResult(sampleResult())
	// More lines than one writev call accepts
	group := make([]string, 0, 1500)
	for i := 0; i < cap(group); i++ {
		group = append(group, filepath.Join("/many", strings.Repeat("d", i%7+1), "f"+strconv.Itoa(i)))
	}
	r.Duplicates[1] = map[string][]string{"dddd": group}

	path := filepath.Join(t.TempDir(), "out.txt")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, EncodeFdupes(f, r))
	require.NoError(t, f.Close())

	var buf bytes.Buffer
	require.NoError(t, EncodeFdupes(&buf, r))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(written))
}

func TestEncodeHumanWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeHuman(&buf, FromResult(sampleResult())))

	out := buf.String()
	assert.NotContains(t, out, "\x1b[", "no colour codes when not writing to a terminal")
	assert.Contains(t, out, "Duplicates in /data (sha512, complete)")
	assert.Contains(t, out, "3 groups, 7 files")
	assert.Contains(t, out, "4.0 KiB x 3 cccc")
	assert.Contains(t, out, "    /data/a.txt\n")
	assert.Contains(t, out, "1 paths skipped:")
	assert.Contains(t, out, "[walk] /data/locked: unreadable directory: permission denied")

	buf.Reset()
	incomplete := sampleResult()
	incomplete.Complete = false
	incomplete.Duplicates = nil
	require.NoError(t, EncodeHuman(&buf, FromResult(incomplete)))
	assert.Contains(t, buf.String(), "incomplete")
	assert.Contains(t, buf.String(), "No duplicate files found.")
}

func TestEncoderForUnknownFormats(t *testing.T) {
	_, err := EncoderFor("xml")
	assert.Error(t, err)
	_, err = EncoderFor(FormatSQLite)
	assert.Error(t, err)
	_, err = EncoderFor("JSON")
	assert.NoError(t, err)
}
