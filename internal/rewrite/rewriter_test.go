package rewrite

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRules = []Rule{
	{Old: "nmm-doc-extraction", New: "hcltech-doc-extraction"},
	{Old: "nmm-doc-dashboard", New: "hcltech-doc-dashboard"},
	{Old: "nmm-dashboard", New: "hcltech-doc-dashboard"},
}

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

func TestApply_QuotedOccurrences(t *testing.T) {
	for _, r := range testRules {
		for _, q := range []string{`"`, `'`} {
			t.Run(r.Old+" "+q, func(t *testing.T) {
				in := "table = dynamodb.Table(" + q + r.Old + q + ")\n"
				want := "table = dynamodb.Table(" + q + r.New + q + ")\n"
				assert.Equal(t, want, Apply(in, testRules))
			})
		}
	}
}

func TestApply_UnquotedUntouched(t *testing.T) {
	tests := []string{
		"# reads from nmm-doc-extraction\n",
		"TABLE=nmm-dashboard\n",
		"`nmm-doc-dashboard`\n",
		`"nmm-doc-extraction-v2"` + "\n",
		`"prefix-nmm-dashboard"` + "\n",
		`"nmm-doc-extraction'` + "\n",
	}
	for _, in := range tests {
		assert.Equal(t, in, Apply(in, testRules))
	}
}

func TestApply_Idempotent(t *testing.T) {
	in := `a = "nmm-doc-extraction"; b = 'nmm-dashboard'; c = "nmm-doc-dashboard"`
	once := Apply(in, testRules)
	assert.Equal(t, `a = "hcltech-doc-extraction"; b = 'hcltech-doc-dashboard'; c = "hcltech-doc-dashboard"`, once)
	assert.Equal(t, once, Apply(once, testRules))
}

func TestValidateRules(t *testing.T) {
	tests := []struct {
		name    string
		rules   []Rule
		wantErr bool
	}{
		{"defaults", testRules, false},
		{"empty set", nil, true},
		{"empty old", []Rule{{Old: "", New: "x"}}, true},
		{"empty new", []Rule{{Old: "x", New: ""}}, true},
		{"duplicate old", []Rule{{Old: "a", New: "b"}, {Old: "a", New: "c"}}, true},
		{"chained", []Rule{{Old: "a", New: "b"}, {Old: "b", New: "c"}}, true},
		{"self rename", []Rule{{Old: "a", New: "a"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRules(tt.rules)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRewriteFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	rw := New(fs, zerolog.Nop())

	writeFile(t, fs, "orchestrator.py", "TABLE = 'nmm-doc-extraction'\n# nmm-doc-extraction\n")
	changed, err := rw.RewriteFile("orchestrator.py", testRules)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "TABLE = 'hcltech-doc-extraction'\n# nmm-doc-extraction\n", readFile(t, fs, "orchestrator.py"))

	changed, err = rw.RewriteFile("orchestrator.py", testRules)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestRewriteFile_NoMatchLeavesFileIdentical(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := "import boto3\r\nprint('hello')\n\tno tables here\n"
	writeFile(t, fs, "agent.py", content)
	before, err := fs.Stat("agent.py")
	require.NoError(t, err)

	changed, err := New(fs, zerolog.Nop()).RewriteFile("agent.py", testRules)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, content, readFile(t, fs, "agent.py"))

	after, err := fs.Stat("agent.py")
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestRewriteFile_PreservesMode(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "run.py", []byte(`t = "nmm-dashboard"`), 0o755))

	changed, err := New(fs, zerolog.Nop()).RewriteFile("run.py", testRules)
	require.NoError(t, err)
	assert.True(t, changed)

	info, err := fs.Stat("run.py")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestRewriteFile_Errors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, err := New(afero.NewMemMapFs(), zerolog.Nop()).RewriteFile("nope.py", testRules)
		assert.Error(t, err)
	})

	t.Run("not utf-8", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "bin.py", []byte{0xff, 0xfe, '"', 'n', '"'}, 0o644))
		_, err := New(fs, zerolog.Nop()).RewriteFile("bin.py", testRules)
		assert.ErrorIs(t, err, ErrNotText)
	})

	t.Run("read only", func(t *testing.T) {
		base := afero.NewMemMapFs()
		writeFile(t, base, "ro.py", `t = "nmm-dashboard"`)
		_, err := New(afero.NewReadOnlyFs(base), zerolog.Nop()).RewriteFile("ro.py", testRules)
		assert.Error(t, err)
		assert.Equal(t, `t = "nmm-dashboard"`, readFile(t, base, "ro.py"))
	})
}

func TestRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "agent1.py", `TABLE = "nmm-doc-extraction"`)
	writeFile(t, fs, "agent2.py", `print("nothing to see")`)
	writeFile(t, fs, "agent3.py", `d = 'nmm-doc-dashboard'`)
	require.NoError(t, afero.WriteFile(fs, "bad.py", []byte{0xc3, 0x28}, 0o644))

	files := []string{"agent1.py", "missing.py", "agent2.py", "bad.py", "agent3.py"}
	rw := New(fs, zerolog.Nop())

	res := rw.Run(files, testRules)
	assert.Equal(t, []string{"agent1.py", "agent3.py"}, res.Updated)
	assert.Equal(t, []string{"agent2.py"}, res.Unchanged)
	assert.Equal(t, []string{"missing.py"}, res.Missing)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "bad.py", res.Failed[0].Path)
	assert.True(t, res.HasFailures())

	assert.Equal(t, `TABLE = "hcltech-doc-extraction"`, readFile(t, fs, "agent1.py"))
	assert.Equal(t, `d = 'hcltech-doc-dashboard'`, readFile(t, fs, "agent3.py"))

	// second run changes nothing
	res = rw.Run(files, testRules)
	assert.Empty(t, res.Updated)
	assert.Equal(t, []string{"agent1.py", "agent2.py", "agent3.py"}, res.Unchanged)
}

func TestRun_AllMissing(t *testing.T) {
	res := New(afero.NewMemMapFs(), zerolog.Nop()).Run([]string{"a.py", "b.py"}, testRules)
	assert.Empty(t, res.Updated)
	assert.Equal(t, []string{"a.py", "b.py"}, res.Missing)
	assert.False(t, res.HasFailures())
}
