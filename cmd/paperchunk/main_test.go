package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const paperText = "A Study of Retrieval\nJane Doe, John Roe, Alex Poe\nAbstract\n" +
	"We study retrieval augmented generation for open domain question answering tasks.\f" +
	"1 Introduction\nLarge language models store factual knowledge in their parameters but cannot easily revise it.\n\n" +
	"2 Method\nOur retriever encodes every passage with a dense bidirectional encoder before indexing.\n\n" +
	"References\n[1] Lewis et al. Retrieval augmented generation for knowledge intensive tasks. 2020.\n"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writePaper(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "2005.11401v4.txt")
	require.NoError(t, os.WriteFile(path, []byte(paperText), 0o644))
	return path
}

func TestSegmentCmd(t *testing.T) {
	path := writePaper(t)
	stdout, err := run(t, "segment", "--metrics", path)
	require.NoError(t, err)

	var got segmentOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "2005.11401v4", got.DocID)
	assert.Equal(t, "A Study of Retrieval", got.Title)
	assert.Equal(t, 2, got.Pages)

	require.Len(t, got.Sections, 3)
	assert.Equal(t, "Abstract", got.Sections[0].Label)
	assert.Equal(t, "1 Introduction", got.Sections[1].Label)
	assert.Equal(t, "2 Method", got.Sections[2].Label)
	for _, s := range got.Sections {
		require.Len(t, s.Chunks, 1)
		c := s.Chunks[0]
		assert.NotContains(t, c.Content, "Lewis et al")
		assert.Positive(t, c.Tokens)
		require.NotNil(t, c.Prose)
		assert.Empty(t, c.Prose.RejectedReason)
	}
}

func TestSegmentCmd_Errors(t *testing.T) {
	path := writePaper(t)

	_, err := run(t, "segment", "--chunk-size", "50", "--overlap", "50", path)
	assert.ErrorContains(t, err, "overlap")

	_, err = run(t, "segment", "--overlap=-3", path)
	assert.ErrorContains(t, err, "overlap")

	_, err = run(t, "segment", filepath.Join(filepath.Dir(path), "table.csv"))
	assert.ErrorContains(t, err, "unsupported")

	_, err = run(t, "segment")
	assert.Error(t, err)
}

func TestIngestCmd_NoFiles(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("STORE_BACKEND", "sqlite")
	empty := t.TempDir()

	stdout, err := run(t, "ingest", empty)
	require.NoError(t, err)
	assert.Empty(t, stdout)
}

func TestIngestCmd_InvalidConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := run(t, "ingest", t.TempDir())
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestSegmentCmd_ChunkSizeOnlyClampsConfiguredOverlap(t *testing.T) {
	path := writePaper(t)
	stdout, err := run(t, "segment", "--chunk-size", "80", path)
	require.NoError(t, err)

	var got segmentOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	require.Len(t, got.Sections, 3)
	for _, s := range got.Sections {
		for _, c := range s.Chunks {
			assert.LessOrEqual(t, c.Tokens, 80)
		}
	}
}
