package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/teenjuna/framer/internal/testing/require"
)

func execute(t *testing.T, stdin []byte, args ...string) ([]byte, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetIn(bytes.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.Bytes(), err
}

func TestEncodeDecode(t *testing.T) {
	input := []byte("hello\n\nzero\x00byte\n")

	cases := map[string][]string{
		"cobs":           {"--codec", "cobs"},
		"prefix/fixed32": {"--codec", "prefix"},
		"prefix/varint":  {"--codec", "prefix", "--width", "varint"},
	}

	for name, flags := range cases {
		t.Run(name, func(t *testing.T) {
			encoded, err := execute(t, input, append([]string{"encode"}, flags...)...)
			require.Nil(t, err)

			decoded, err := execute(t, encoded, append([]string{"decode"}, flags...)...)
			require.Nil(t, err)
			require.Equal(t, decoded, input)
		})
	}
}

func TestEncodeLayout(t *testing.T) {
	encoded, err := execute(t, []byte("ab\n"), "encode")
	require.Nil(t, err)
	require.Equal(t, encoded, []byte{0x03, 'a', 'b', 0x00})

	encoded, err = execute(t, []byte("ab\n"), "encode", "--codec", "prefix")
	require.Nil(t, err)
	require.Equal(t, encoded, []byte{0x02, 0x00, 0x00, 0x00, 'a', 'b'})
}

func TestDecodeHex(t *testing.T) {
	out, err := execute(t, []byte{0x01, 0x01, 0x00, 0x02, 0xFF, 0x00}, "decode", "--hex")
	require.Nil(t, err)
	require.Equal(t, string(out), "00\nff\n")
}

func TestDecodeErrors(t *testing.T) {
	_, err := execute(t, []byte{0x03, 'a'}, "decode")
	require.NotNil(t, err)
	require.Equal(t, strings.Contains(err.Error(), "unexpected EOF"), true)

	_, err = execute(t, []byte{0x05, 0x00}, "decode")
	require.NotNil(t, err)
	require.Equal(t, strings.Contains(err.Error(), "malformed frame"), true)

	_, err = execute(t, []byte{0x05, 'a', 'b', 'c', 'd', 0x00}, "decode", "--max-frame", "3")
	require.NotNil(t, err)
	require.Equal(t, strings.Contains(err.Error(), "frame too large"), true)
}

func TestTranscode(t *testing.T) {
	input := []byte("one\ntwo\nthree\n")

	cobs, err := execute(t, input, "encode")
	require.Nil(t, err)

	varint, err := execute(t, cobs, "transcode", "--to", "prefix", "--to-width", "varint")
	require.Nil(t, err)
	require.Equal(t, varint[:4], []byte{0x03, 'o', 'n', 'e'})

	decoded, err := execute(t, varint, "decode", "--codec", "prefix", "--width", "varint")
	require.Nil(t, err)
	require.Equal(t, decoded, input)

	back, err := execute(t, varint, "transcode", "--codec", "prefix", "--width", "varint", "--to", "cobs")
	require.Nil(t, err)
	require.Equal(t, back, cobs)
}

func TestRecordReplay(t *testing.T) {
	db := filepath.Join(t.TempDir(), "frames.db")

	encoded, err := execute(t, []byte("a\nb\nc\n"), "encode")
	require.Nil(t, err)

	_, err = execute(t, encoded, "record", "--db", db)
	require.Nil(t, err)

	replayed, err := execute(t, nil, "replay", "--db", db)
	require.Nil(t, err)
	require.Equal(t, replayed, encoded)

	replayed, err = execute(t, nil, "replay", "--db", db, "--after", "2", "--codec", "prefix")
	require.Nil(t, err)
	require.Equal(t, replayed, []byte{0x01, 0x00, 0x00, 0x00, 'c'})
}

func TestAnalyze(t *testing.T) {
	out, err := execute(t, nil, "analyze", "--sizes", "1000", "--zeros", "0,50")
	require.Nil(t, err)

	text := string(out)
	for _, s := range []string{"cobs", "fixed32", "varint", "1005", "1004", "1002"} {
		require.Equal(t, strings.Contains(text, s), true)
	}
}

func TestAnalyzeValidation(t *testing.T) {
	cases := [][]string{
		{"--sizes", "-5"},
		{"--zero-size", "-1"},
		{"--zeros", "-1"},
		{"--zeros", "101"},
	}

	for _, flags := range cases {
		_, err := execute(t, nil, append([]string{"analyze"}, flags...)...)
		require.NotNil(t, err)
	}

	// The bounds themselves are fine.
	_, err := execute(t, nil, "analyze", "--sizes", "0", "--zeros", "0,100", "--zero-size", "0")
	require.Nil(t, err)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"framectl.toml": "codec = \"prefix\"\nwidth = \"varint\"\n",
		"framectl.yaml": "codec: prefix\nwidth: varint\n",
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.Nil(t, os.WriteFile(path, []byte(content), 0o600))

			encoded, err := execute(t, []byte("ab\n"), "encode", "--config", path)
			require.Nil(t, err)
			require.Equal(t, encoded, []byte{0x02, 'a', 'b'})

			// Flags win over the file.
			encoded, err = execute(t, []byte("ab\n"), "encode", "--config", path, "--codec", "cobs")
			require.Nil(t, err)
			require.Equal(t, encoded, []byte{0x03, 'a', 'b', 0x00})
		})
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	require.Nil(t, err)
	require.Equal(t, cfg, defaultConfig())

	path := filepath.Join(t.TempDir(), "framectl.json")
	require.Nil(t, os.WriteFile(path, []byte("{}"), 0o600))
	_, err = loadConfig(path)
	require.NotNil(t, err)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NotNil(t, err)
}

func TestInvalidSettings(t *testing.T) {
	_, err := execute(t, nil, "encode", "--codec", "base64")
	require.NotNil(t, err)

	_, err = execute(t, nil, "encode", "--codec", "prefix", "--width", "int16")
	require.NotNil(t, err)

	_, err = execute(t, nil, "encode", "--log-level", "loud")
	require.NotNil(t, err)

	_, err = execute(t, nil, "encode", "--max-frame", "-1")
	require.NotNil(t, err)

	t.Setenv(logLevelEnv, "loud")
	_, err = execute(t, nil, "encode")
	require.NotNil(t, err)
}

func TestPayload(t *testing.T) {
	require.Equal(t, bytes.Count(payload(1000, 0), []byte{0}), 0)
	require.Equal(t, bytes.Count(payload(1000, 0.1), []byte{0}), 100)
	require.Equal(t, bytes.Count(payload(1000, 0.5), []byte{0}), 500)
	require.Equal(t, len(payload(100, 0.25)), 100)
}
