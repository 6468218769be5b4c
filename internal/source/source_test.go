package source

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/covgate/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const passagesJSONL = `{"issuer":"L01","product":"P1","document_id":"terms","document_type":"terms","page":3,"seq":1,"excerpt":"일반암진단비 가입금액 3,000만원"}
# comment

{"issuer":"L01","document_id":"terms","document_type":"terms","page":3,"seq":2,"excerpt":"   "}
{"issuer":"L01","product":"P1","document_id":"summary","document_type":"summary","page":1,"seq":1,"excerpt":"질병입원일당 1일당 3만원"}
`

func TestJSONLSource_ReadAll(t *testing.T) {
	path := writeFile(t, t.TempDir(), "passages.jsonl", passagesJSONL)
	src, err := NewPassageSource(FormatJSONL, path)
	require.NoError(t, err)

	passages, skipped, err := ReadAll(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, passages, 2)
	assert.Equal(t, "terms#p3:1", passages[0].Locator())
	assert.Equal(t, "summary", passages[1].DocumentType)

	// restartable
	again, _, err := ReadAll(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, passages, again)
}

func TestJSONLSource_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad json", "{not json}\n", "line 1"},
		{"unknown field", `{"issuer":"L01","document_id":"d","colour":"red"}` + "\n", "unknown field"},
		{"missing issuer", "\n" + `{"document_id":"d","excerpt":"x"}` + "\n", "line 2: issuer and document_id are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.name+".jsonl", tt.content)
			_, _, err := ReadAll(context.Background(), &JSONLSource{Path: path})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, _, err := ReadAll(context.Background(), &JSONLSource{Path: filepath.Join(dir, "missing.jsonl")})
	assert.Error(t, err)
}

func TestHTMLDirSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b-summary.html", `<html><head><meta name="covgate:issuer" content="L02"><meta name="covgate:document-type" content="summary"></head>
<body><p>질병입원일당 1일당 3만원</p><p> </p></body></html>`)
	writeFile(t, dir, "a-terms.html", `<html><head><meta name="covgate:issuer" content="L02"><meta name="covgate:product" content="P1"></head>
<body><div data-page="7"><li>질병수술비 1회당 100만원</li></div></body></html>`)
	writeFile(t, dir, "notes.txt", "ignored")

	src, err := NewPassageSource(FormatHTML, dir)
	require.NoError(t, err)

	passages, skipped, err := ReadAll(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, passages, 2)
	assert.Equal(t, "a-terms#p7:1", passages[0].Locator())
	assert.Equal(t, "P1", passages[0].Product)
	assert.Equal(t, "b-summary#p1:1", passages[1].Locator())
	assert.Equal(t, "summary", passages[1].DocumentType)
}

func TestHTMLDirSource_Empty(t *testing.T) {
	_, _, err := ReadAll(context.Background(), &HTMLDirSource{Dir: t.TempDir()})
	assert.ErrorContains(t, err, "no .html documents")
}

func TestNewPassageSource_Unknown(t *testing.T) {
	_, err := NewPassageSource("pdf", "x")
	assert.Error(t, err)
}

func TestReadAll_Cancelled(t *testing.T) {
	path := writeFile(t, t.TempDir(), "passages.jsonl", passagesJSONL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := ReadAll(ctx, &JSONLSource{Path: path})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadEntities(t *testing.T) {
	dir := t.TempDir()
	yamlPath := writeFile(t, dir, "entities.yaml", `
- issuer: L01
  product: P1
  raw_name: 일반암진단비Ⅱ
- issuer: L01
  product: P1
  raw_name: 암진단Ⅱ(유사암제외)담보
  anchor_terms: [암 진단]
- issuer: L01
  product: P1
  raw_name: 일반암진단비Ⅱ
  anchor_terms: [ignored]
`)
	jsonlPath := writeFile(t, dir, "entities.jsonl", `{"issuer":"L02","product":"P1","raw_name":"질병입원일당"}
{"issuer":"L02","product":"P1","raw_name":"질병입원일당(갱신형)"}
`)

	fromYAML, err := LoadEntities(yamlPath)
	require.NoError(t, err)
	require.Len(t, fromYAML, 2)
	assert.Empty(t, fromYAML[0].AnchorTerms)
	assert.Equal(t, []string{"암 진단"}, fromYAML[1].AnchorTerms)

	fromJSONL, err := LoadEntities(jsonlPath)
	require.NoError(t, err)
	assert.Equal(t, []model.Entity{
		{Issuer: "L02", Product: "P1", RawName: "질병입원일당"},
		{Issuer: "L02", Product: "P1", RawName: "질병입원일당(갱신형)"},
	}, fromJSONL)
}

func TestLoadEntities_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadEntities(writeFile(t, dir, "entities.csv", "a,b"))
	assert.ErrorContains(t, err, "unsupported")

	_, err = LoadEntities(writeFile(t, dir, "bad.yaml", "- issuer: L01\n  colour: red\n"))
	assert.Error(t, err)

	_, err = LoadEntities(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestDedupe_WarnsOnDivergentDuplicate(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	entities := []model.Entity{
		{Issuer: "L01", Product: "P1", RawName: "질병수술비", AnchorTerms: []string{"질병수술비"}},
		{Issuer: "L01", Product: "P1", RawName: "질병수술비", AnchorTerms: []string{"질병수술비"}},
		{Issuer: "L01", Product: "P1", RawName: "질병수술비", AnchorTerms: []string{"수술급여금"}},
		{Issuer: "L01", Product: "P2", RawName: "질병수술비"},
	}
	out := Dedupe(entities)

	require.Len(t, out, 2)
	assert.Equal(t, []string{"질병수술비"}, out[0].AnchorTerms)
	assert.Equal(t, "P2", out[1].Product)
	assert.Equal(t, 1, strings.Count(logs.String(), "duplicate entity with different anchor terms dropped"))
}
