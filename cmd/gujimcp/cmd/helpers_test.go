package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// fixtureDir writes a two-book corpus under dir/corpus and returns dir.
func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "corpus", "lunyu", "book.yaml"), `
id: LUNYU
title: 论语
author: 孔子弟子
dynasty: 春秋
category: 经部
chapters:
  - id: xueer
    title: 学而
    footnotes: ["朱熹集注"]
  - id: weizheng
    title: 为政
`)
	writeFile(t, filepath.Join(dir, "corpus", "lunyu", "xueer.txt"), "学而时习之，不亦说乎。有朋自远方来，不亦乐乎。")
	writeFile(t, filepath.Join(dir, "corpus", "lunyu", "weizheng.txt"), "为政以德，譬如北辰，居其所而众星共之。")
	writeFile(t, filepath.Join(dir, "corpus", "mengzi", "book.yaml"), `
id: MENGZI
title: 孟子
author: 孟子
dynasty: 战国
category: 经部
chapters:
  - id: lianglh
    title: 梁惠王上
`)
	writeFile(t, filepath.Join(dir, "corpus", "mengzi", "lianglh.txt"), "孟子见梁惠王。王曰：叟不远千里而来，亦将有以利吾国乎？")
	return dir
}

type result struct {
	stdout string
	stderr string
	err    error
}

// execute runs the root command with an isolated home directory.
func execute(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("NO_COLOR", "1")

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(bytes.NewBufferString(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}
