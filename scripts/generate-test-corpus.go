//go:build ignore

// Package main generates a synthetic corpus for load and search benchmarks.
// Usage: go run scripts/generate-test-corpus.go -books 200 -output testdata/bench
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	numBooks    = flag.Int("books", 200, "Number of books to generate")
	numChapters = flag.Int("chapters", 12, "Chapters per book")
	chapterLen  = flag.Int("length", 3000, "Characters per chapter")
	outputDir   = flag.String("output", "testdata/bench", "Output directory")
	seed        = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var (
	categories = []string{"经部", "史部", "子部", "集部"}
	dynasties  = []string{"春秋", "战国", "汉", "魏晋", "唐", "宋", "元", "明", "清"}
	surnames   = []rune("王李张刘陈杨赵黄周吴徐孙胡朱高林何郭马罗")
	titleHead  = []string{"通", "集", "纪", "志", "论", "要", "记", "录", "典", "略"}

	// phrases seed the generated text so searches hit realistic bigrams.
	phrases = []string{
		"学而时习之", "不亦说乎", "道可道非常道", "天下大势", "分久必合",
		"仁者爱人", "温故而知新", "知之为知之", "君子喻于义", "天行健",
		"上善若水", "吾日三省吾身", "己所不欲", "勿施于人", "三人行必有我师",
	}
	filler = []rune("之乎者也而以其所为于曰不人天下国君臣民事物心性道德礼乐政刑")
	marks  = []string{"，", "。", "；", "：", "？"}
)

type manifest struct {
	ID       string    `yaml:"id"`
	Title    string    `yaml:"title"`
	Author   string    `yaml:"author"`
	Dynasty  string    `yaml:"dynasty"`
	Category string    `yaml:"category"`
	Chapters []chapter `yaml:"chapters"`
}

type chapter struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	File  string `yaml:"file"`
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
		os.Exit(1)
	}

	var total int
	for b := 0; b < *numBooks; b++ {
		n, err := writeBook(rng, b)
		if err != nil {
			fmt.Fprintf(os.Stderr, "book %d: %v\n", b, err)
			os.Exit(1)
		}
		total += n
	}
	fmt.Printf("Generated %d books (%d characters) in %s\n", *numBooks, total, *outputDir)
}

func writeBook(rng *rand.Rand, n int) (int, error) {
	id := fmt.Sprintf("BOOK%04d", n)
	dir := filepath.Join(*outputDir, strings.ToLower(id))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, err
	}

	m := manifest{
		ID:       id,
		Title:    bookTitle(rng),
		Author:   string(surnames[rng.Intn(len(surnames))]) + string(filler[rng.Intn(len(filler))]),
		Dynasty:  dynasties[rng.Intn(len(dynasties))],
		Category: categories[rng.Intn(len(categories))],
	}

	var written int
	for c := 0; c < *numChapters; c++ {
		ch := chapter{
			ID:    fmt.Sprintf("ch%02d", c+1),
			Title: fmt.Sprintf("卷%d", c+1),
			File:  fmt.Sprintf("ch%02d.txt", c+1),
		}
		body := chapterText(rng, *chapterLen)
		if err := os.WriteFile(filepath.Join(dir, ch.File), []byte(body), 0644); err != nil {
			return 0, err
		}
		written += len([]rune(body))
		m.Chapters = append(m.Chapters, ch)
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return 0, err
	}
	return written, os.WriteFile(filepath.Join(dir, "book.yaml"), data, 0644)
}

func bookTitle(rng *rand.Rand) string {
	return string(filler[rng.Intn(len(filler))]) + string(filler[rng.Intn(len(filler))]) +
		titleHead[rng.Intn(len(titleHead))]
}

func chapterText(rng *rand.Rand, length int) string {
	var sb strings.Builder
	runes := 0
	for runes < length {
		var clause string
		if rng.Intn(4) == 0 {
			clause = phrases[rng.Intn(len(phrases))]
		} else {
			r := make([]rune, 3+rng.Intn(6))
			for i := range r {
				r[i] = filler[rng.Intn(len(filler))]
			}
			clause = string(r)
		}
		sb.WriteString(clause)
		sb.WriteString(marks[rng.Intn(len(marks))])
		runes += len([]rune(clause)) + 1
	}
	return sb.String()
}
