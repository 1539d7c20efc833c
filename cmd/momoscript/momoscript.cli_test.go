package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	momoscript "github.com/itsatony/go-momoscript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test data constants
const (
	testScript       = "@title: Test\n> 星野: hello\n  world\n- Sensei says hi\n"
	testCharIDs      = `{"星野": "hoshino", "白子": "shiroko"}`
	testAssetMapping = `{"hoshino": {"avatar": "avatars/hoshino.png"}, "shiroko": {"avatar": "avatars/shiroko.png"}}`
)

// runCLI executes run() and returns exit code, stdout and stderr
func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := run(args, strings.NewReader(stdin), stdout, stderr)
	return code, stdout.String(), stderr.String()
}

// setupPackDir writes a pack-v2 layout into a temp directory and returns
// the pack-v2 directory
func setupPackDir(t *testing.T, charIDs, mapping string) string {
	t.Helper()
	packRoot := filepath.Join(t.TempDir(), momoscript.PackDirName)
	dir := filepath.Join(packRoot, "ba")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	if charIDs != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, momoscript.PackCharIDFile), []byte(charIDs), FilePermissions))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, momoscript.PackAssetMappingFile), []byte(mapping), FilePermissions))
	return packRoot
}

// ==================== run() dispatch tests ====================

func TestRun_Dispatch(t *testing.T) {
	t.Run("no args shows help", func(t *testing.T) {
		code, stdout, _ := runCLI(t, "")
		assert.Equal(t, ExitCodeSuccess, code)
		assert.Contains(t, stdout, CLIName)
		assert.Contains(t, stdout, CmdNameCompile)
	})

	t.Run("help command", func(t *testing.T) {
		code, stdout, _ := runCLI(t, "", CmdNameHelp)
		assert.Equal(t, ExitCodeSuccess, code)
		assert.Contains(t, stdout, HelpMainUsage)
	})

	t.Run("unknown command", func(t *testing.T) {
		code, stdout, _ := runCLI(t, "", "unknown")
		assert.Equal(t, ExitCodeUsageError, code)
		assert.Contains(t, stdout, ErrMsgUnknownCommand)
	})
}

func TestHelp_Commands(t *testing.T) {
	tests := []struct {
		cmd      string
		expected string
	}{
		{CmdNameCompile, HelpCompileUsage},
		{CmdNameParse, HelpParseUsage},
		{CmdNamePack, HelpPackUsage},
		{CmdNameVersion, HelpVersionUsage},
		{CmdNameHelp, HelpHelpUsage},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			stdout := &bytes.Buffer{}
			assert.Equal(t, ExitCodeSuccess, runHelp([]string{tt.cmd}, stdout))
			assert.Contains(t, stdout.String(), tt.expected)
		})
	}
}

// ==================== compile tests ====================

func TestCompile_Stdin(t *testing.T) {
	code, stdout, stderr := runCLI(t, testScript, CmdNameCompile, "-i", "-")
	require.Equal(t, ExitCodeSuccess, code, stderr)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))

	meta := doc["meta"].(map[string]any)
	assert.Equal(t, "Test", meta["title"])

	chat := doc["chat"].([]any)
	require.Len(t, chat, 2)
	first := chat[0].(map[string]any)
	assert.Equal(t, "ba.星野", first["char_id"])
	assert.Equal(t, "hello\nworld", first["content"])
}

func TestCompile_FileOutputAndReport(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "story.momo")
	output := filepath.Join(dir, "story.json")
	report := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(input, []byte(testScript), FilePermissions))

	code, stdout, stderr := runCLI(t, "", CmdNameCompile,
		"-i", input, "-o", output, "--report", report, "--join", JoinModeSpace)
	require.Equal(t, ExitCodeSuccess, code, stderr)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"hello world"`)

	reportData, err := os.ReadFile(report)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(reportData, &decoded))
	assert.EqualValues(t, 2, decoded["message_count"])
}

func TestCompile_WithFilesystemPack(t *testing.T) {
	packRoot := setupPackDir(t, testCharIDs, testAssetMapping)

	code, stdout, stderr := runCLI(t, "> 星野: hi\n", CmdNameCompile, "-i", "-",
		"--pack-driver", momoscript.StorageDriverNameFilesystem,
		"--pack-dsn", packRoot,
		"--pack", "ba")
	require.Equal(t, ExitCodeSuccess, code, stderr)
	assert.Contains(t, stdout, `"ba.hoshino"`)
}

func TestCompile_ConfigFile(t *testing.T) {
	packRoot := setupPackDir(t, testCharIDs, testAssetMapping)
	configPath := filepath.Join(t.TempDir(), "momoscript.yaml")
	config := "compile:\n  join_with_newline: false\npack:\n  driver: filesystem\n  dsn: " + packRoot + "\nlog:\n  level: warn\n"
	require.NoError(t, os.WriteFile(configPath, []byte(config), FilePermissions))

	t.Run("config values apply", func(t *testing.T) {
		code, stdout, stderr := runCLI(t, "> 白子: a\nb\n", CmdNameCompile, "-i", "-", "-c", configPath)
		require.Equal(t, ExitCodeSuccess, code, stderr)
		assert.Contains(t, stdout, `"ba.shiroko"`)
		assert.Contains(t, stdout, `"a b"`)
		assert.Empty(t, stderr)
	})

	t.Run("flags override config", func(t *testing.T) {
		code, stdout, stderr := runCLI(t, "> 白子: a\nb\n", CmdNameCompile, "-i", "-",
			"-c", configPath, "--join", JoinModeNewline)
		require.Equal(t, ExitCodeSuccess, code, stderr)
		assert.Contains(t, stdout, `"a\nb"`)
	})
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		stdin    string
		args     []string
		exitCode int
		message  string
	}{
		{
			name:     "missing input",
			args:     []string{},
			exitCode: ExitCodeUsageError,
			message:  ErrMsgMissingInput,
		},
		{
			name:     "invalid join",
			args:     []string{"-i", "-", "--join", "tab"},
			exitCode: ExitCodeUsageError,
			message:  ErrMsgInvalidJoin,
		},
		{
			name:     "unknown driver",
			args:     []string{"-i", "-", "--pack-driver", "mongo"},
			exitCode: ExitCodeUsageError,
			message:  momoscript.ErrMsgConfigInvalidDriver,
		},
		{
			name:     "missing config file",
			args:     []string{"-i", "-", "-c", filepath.Join("does", "not", "exist.yaml")},
			exitCode: ExitCodeUsageError,
			message:  momoscript.ErrMsgConfigReadFailed,
		},
		{
			name:     "missing input file",
			args:     []string{"-i", filepath.Join("does", "not", "exist.momo")},
			exitCode: ExitCodeInputError,
			message:  ErrMsgReadFileFailed,
		},
		{
			name:     "invalid utf8",
			stdin:    "> 星野: \xff",
			args:     []string{"-i", "-"},
			exitCode: ExitCodeInputError,
			message:  momoscript.ErrMsgInvalidUTF8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.stdin, append([]string{CmdNameCompile}, tt.args...)...)
			assert.Equal(t, tt.exitCode, code)
			assert.Contains(t, stderr, tt.message)
		})
	}
}

func TestCompile_MissingPack(t *testing.T) {
	code, _, stderr := runCLI(t, "> 星野: hi", CmdNameCompile, "-i", "-",
		"--pack-driver", momoscript.StorageDriverNameFilesystem,
		"--pack-dsn", t.TempDir())
	assert.Equal(t, ExitCodeInputError, code)
	assert.Contains(t, stderr, ErrMsgLoadPackFailed)
	assert.Contains(t, stderr, momoscript.ErrMsgPackNotFound)
}

// ==================== parse tests ====================

func TestParse(t *testing.T) {
	t.Run("nodes as json", func(t *testing.T) {
		code, stdout, stderr := runCLI(t, "> 星野: hi\n@title: x", CmdNameParse, "-i", "-")
		require.Equal(t, ExitCodeSuccess, code, stderr)

		var nodes []map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &nodes))
		require.Len(t, nodes, 2)
		assert.Equal(t, "statement", nodes[0]["type"])
		assert.Equal(t, "星野", nodes[0]["speaker"])
		assert.Equal(t, "directive", nodes[1]["type"])
	})

	t.Run("missing input", func(t *testing.T) {
		code, _, stderr := runCLI(t, "", CmdNameParse)
		assert.Equal(t, ExitCodeUsageError, code)
		assert.Contains(t, stderr, ErrMsgMissingInput)
	})

	t.Run("invalid utf8", func(t *testing.T) {
		code, _, stderr := runCLI(t, "\xff", CmdNameParse, "-i", "-")
		assert.Equal(t, ExitCodeInputError, code)
		assert.Contains(t, stderr, ErrMsgParseFailed)
	})
}

// ==================== pack tests ====================

func TestPack_Validate(t *testing.T) {
	t.Run("valid pack", func(t *testing.T) {
		packRoot := setupPackDir(t, testCharIDs, testAssetMapping)
		code, stdout, _ := runCLI(t, "", CmdNamePack, PackCmdValidate, filepath.Join(packRoot, "ba"))
		assert.Equal(t, ExitCodeSuccess, code)
		assert.Contains(t, stdout, PackTextValid)
	})

	t.Run("warnings pass unless strict", func(t *testing.T) {
		packRoot := setupPackDir(t, `{"ghost": "nobody"}`, testAssetMapping)
		dir := filepath.Join(packRoot, "ba")

		code, stdout, _ := runCLI(t, "", CmdNamePack, PackCmdValidate, dir)
		assert.Equal(t, ExitCodeSuccess, code)
		assert.Contains(t, stdout, SeverityNameWarning)

		code, _, _ = runCLI(t, "", CmdNamePack, PackCmdValidate, "--strict", dir)
		assert.Equal(t, ExitCodeValidationError, code)
	})

	t.Run("invalid pack json output", func(t *testing.T) {
		packRoot := setupPackDir(t, "", `{"hoshino": {"avatar": "../escape.png"}}`)
		code, stdout, _ := runCLI(t, "", CmdNamePack, PackCmdValidate, "-F", OutputFormatJSON, filepath.Join(packRoot, "ba"))
		assert.Equal(t, ExitCodeValidationError, code)

		var output packValidationOutput
		require.NoError(t, json.Unmarshal([]byte(stdout), &output))
		assert.False(t, output.Valid)
		require.Len(t, output.Errors, 1)
		assert.Contains(t, output.Errors[0], momoscript.ErrMsgUnsafeAvatarPath)
		assert.NotNil(t, output.Warnings)
	})

	t.Run("missing mapping", func(t *testing.T) {
		code, _, stderr := runCLI(t, "", CmdNamePack, PackCmdValidate, t.TempDir())
		assert.Equal(t, ExitCodeInputError, code)
		assert.Contains(t, stderr, ErrMsgReadFileFailed)
	})

	t.Run("missing dir", func(t *testing.T) {
		code, _, stderr := runCLI(t, "", CmdNamePack, PackCmdValidate)
		assert.Equal(t, ExitCodeUsageError, code)
		assert.Contains(t, stderr, ErrMsgMissingPackDir)
	})
}

func TestPack_ImportAndList(t *testing.T) {
	packRoot := setupPackDir(t, testCharIDs, testAssetMapping)
	dbPath := filepath.Join(t.TempDir(), "packs.db")

	code, stdout, stderr := runCLI(t, "", CmdNamePack, PackCmdImport,
		"--driver", momoscript.StorageDriverNameSQLite, "--dsn", dbPath,
		"--log-level", "error", filepath.Join(packRoot, "ba"))
	require.Equal(t, ExitCodeSuccess, code, stderr)
	assert.Contains(t, stdout, "ba")

	code, _, stderr = runCLI(t, "", CmdNamePack, PackCmdImport,
		"--driver", momoscript.StorageDriverNameSQLite, "--dsn", dbPath,
		"--name", "ba_event", "--log-level", "error", filepath.Join(packRoot, "ba"))
	require.Equal(t, ExitCodeSuccess, code, stderr)

	t.Run("text", func(t *testing.T) {
		code, stdout, stderr := runCLI(t, "", CmdNamePack, PackCmdList,
			"--driver", momoscript.StorageDriverNameSQLite, "--dsn", dbPath)
		require.Equal(t, ExitCodeSuccess, code, stderr)
		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "ba\t"))
		assert.True(t, strings.HasPrefix(lines[1], "ba_event\t"))
	})

	t.Run("json with prefix", func(t *testing.T) {
		code, stdout, stderr := runCLI(t, "", CmdNamePack, PackCmdList,
			"--driver", momoscript.StorageDriverNameSQLite, "--dsn", dbPath,
			"--prefix", "ba_", "-F", OutputFormatJSON)
		require.Equal(t, ExitCodeSuccess, code, stderr)

		var entries []packListEntry
		require.NoError(t, json.Unmarshal([]byte(stdout), &entries))
		require.Len(t, entries, 1)
		assert.Equal(t, "ba_event", entries[0].Name)
	})

	t.Run("compile from imported pack", func(t *testing.T) {
		code, stdout, stderr := runCLI(t, "> 星野: hi", CmdNameCompile, "-i", "-",
			"--pack-driver", momoscript.StorageDriverNameSQLite, "--pack-dsn", dbPath,
			"--log-level", "error")
		require.Equal(t, ExitCodeSuccess, code, stderr)
		assert.Contains(t, stdout, `"ba.hoshino"`)
	})
}

func TestPack_ImportErrors(t *testing.T) {
	t.Run("invalid pack", func(t *testing.T) {
		packRoot := setupPackDir(t, "", `{}`)
		code, _, stderr := runCLI(t, "", CmdNamePack, PackCmdImport,
			"--driver", momoscript.StorageDriverNameMemory, "--log-level", "error",
			filepath.Join(packRoot, "ba"))
		assert.Equal(t, ExitCodeValidationError, code)
		assert.Contains(t, stderr, momoscript.ErrMsgPackInvalid)
	})

	t.Run("missing driver", func(t *testing.T) {
		code, _, stderr := runCLI(t, "", CmdNamePack, PackCmdImport, t.TempDir())
		assert.Equal(t, ExitCodeUsageError, code)
		assert.Contains(t, stderr, ErrMsgMissingDriver)
	})

	t.Run("source is not a pack", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "empty")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		code, _, stderr := runCLI(t, "", CmdNamePack, PackCmdImport,
			"--driver", momoscript.StorageDriverNameMemory, dir)
		assert.Equal(t, ExitCodeInputError, code)
		assert.Contains(t, stderr, momoscript.ErrMsgPackNotFound)
	})

	t.Run("unknown subcommand", func(t *testing.T) {
		code, _, stderr := runCLI(t, "", CmdNamePack, "remove")
		assert.Equal(t, ExitCodeUsageError, code)
		assert.Contains(t, stderr, ErrMsgUnknownPackCommand)
	})

	t.Run("no subcommand", func(t *testing.T) {
		code, stdout, _ := runCLI(t, "", CmdNamePack)
		assert.Equal(t, ExitCodeUsageError, code)
		assert.Contains(t, stdout, HelpPackUsage)
	})
}

// ==================== version tests ====================

func TestVersion(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		code, stdout, _ := runCLI(t, "", CmdNameVersion)
		assert.Equal(t, ExitCodeSuccess, code)
		assert.Contains(t, stdout, CLIName)
	})

	t.Run("json", func(t *testing.T) {
		code, stdout, _ := runCLI(t, "", CmdNameVersion, "-F", OutputFormatJSON)
		require.Equal(t, ExitCodeSuccess, code)

		var info versionInfo
		require.NoError(t, json.Unmarshal([]byte(stdout), &info))
		assert.NotEmpty(t, info.Version)
		assert.NotEmpty(t, info.GoVersion)
	})

	t.Run("invalid format", func(t *testing.T) {
		code, _, stderr := runCLI(t, "", CmdNameVersion, "-F", "xml")
		assert.Equal(t, ExitCodeUsageError, code)
		assert.Contains(t, stderr, ErrMsgInvalidFormat)
	})
}

func TestLoadVersionInfo(t *testing.T) {
	dir := t.TempDir()
	content := "project:\n  version: 1.2.3\ngit:\n  commit: abc123\n  branch: main\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, VersionsFileName), []byte(content), FilePermissions))

	info := loadVersionInfo([]string{filepath.Join(dir, "missing"), dir})
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, "abc123", info.Commit)
	assert.Equal(t, "main", info.Branch)
	assert.Equal(t, VersionUnknown, info.BuildTime)

	fallback := loadVersionInfo([]string{filepath.Join(dir, "missing")})
	assert.Equal(t, VersionUnknown, fallback.Version)
}

// ==================== logger tests ====================

func TestNewLogger(t *testing.T) {
	t.Run("file sink", func(t *testing.T) {
		logPath := filepath.Join(t.TempDir(), "momoscript.log")
		stderr := &bytes.Buffer{}

		logger, err := newLogger(momoscript.LogConfig{
			Level:  "info",
			Format: momoscript.LogFormatJSON,
			File:   logPath,
		}, stderr)
		require.NoError(t, err)

		logger.Info(momoscript.LogMsgPackSaved)
		logger.Debug(momoscript.LogMsgCompileStart)
		_ = logger.Sync()

		assert.Contains(t, stderr.String(), momoscript.LogMsgPackSaved)
		assert.NotContains(t, stderr.String(), momoscript.LogMsgCompileStart)

		data, err := os.ReadFile(logPath)
		require.NoError(t, err)
		assert.Contains(t, string(data), momoscript.LogMsgPackSaved)
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := newLogger(momoscript.LogConfig{Level: "loud"}, &bytes.Buffer{})
		assert.Error(t, err)
	})
}
